// Package errors provides structured, coded errors for liveset.
//
// Every error carries a short code (e.g. "L001") that maps to a registered
// template with a category, a one-line message and a longer detail. Errors
// wrap their cause so errors.Is / errors.As keep working across package
// boundaries.
//
// # Error Categories
//
//   - selector: selector text could not be compiled
//   - dispatch: failures while applying a mutation batch (transform, teardown)
//   - source: document loading failures
//   - config: configuration failures
//   - api: HTTP surface failures (unknown set, bad mutation)
//
// # Usage
//
//	err := errors.New("L001").
//	    WithDetail(`expected identifier, found "]"`).
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
//	// ERROR L001: Selector did not compile
//	//
//	//   expected identifier, found "]"
//	//
//	//   Hint: Check the selector syntax; the set stays empty until it is recreated.
package errors

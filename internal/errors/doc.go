// Package errors provides coded, formatted errors for the reactive engine and
// its tooling.
//
// Every diagnostic the engine emits carries a stable code. The code maps to a
// short message and a longer explanation, so that a log line such as
//
//	level=WARN msg="reactive: set on readonly target" code=E101 key=name
//
// can be looked up without reading the source.
//
// # Error Categories
//
//   - runtime: misuse of the reactive API (readonly writes, getter-only computeds)
//   - config: reactive.json parse and validation errors
//   - scenario: scenario file parse errors and failed expectations
//   - cli: command-line usage errors
//
// # Usage
//
//	err := errors.New("E301").
//	    WithLocation("counter.yaml", 12, 5).
//	    WithSuggestion("Each step needs exactly one of set, delete, stop, run or expect")
//
//	fmt.Println(err.Format())
package errors

//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TestingContext detects context.Background() or context.TODO() in tests
// and suggests t.Context(), which is canceled when the test completes.
func TestingContext(m dsl.Matcher) {
	m.Match(
		`$ctx := context.Background()`,
		`$ctx = context.Background()`,
		`$ctx := context.TODO()`,
		`$ctx = context.TODO()`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Context() instead of a detached context")

	m.Match(
		`$fn(context.Background(), $*args)`,
		`$fn(context.TODO(), $*args)`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Context() instead of a detached context")
}

// BenchmarkLoop detects the b.N iteration pattern and suggests b.Loop().
func BenchmarkLoop(m dsl.Matcher) {
	m.Match(
		`for $i := 0; $i < $b.N; $i++ { $*body }`,
		`for $i := range $b.N { $*body }`,
	).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... }; if $i is used in the body, declare it separately")

	m.Match(
		`for range $b.N { $*body }`,
	).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... }").
		Suggest("for $b.Loop() { $body }")
}

// EnhancedErrors flags plain standard library errors in packages that should
// build categorized errors with internal/errors. The logger sits below
// internal/errors and is exempt.
func EnhancedErrors(m dsl.Matcher) {
	m.Match(
		`errors.New($msg)`,
		`fmt.Errorf($*args)`,
	).
		Where(m.File().Imports("errors") &&
			!m.File().Name.Matches(`_test\.go$`) &&
			!m.File().PkgPath.Matches(`/internal/(errors|logger)$`)).
		Report("build errors with internal/errors so they carry a component and category")
}

// StructuredLogFields flags log messages assembled with fmt.Sprintf; values
// belong in logger fields so they stay queryable.
func StructuredLogFields(m dsl.Matcher) {
	m.Match(
		`$l.$level(fmt.Sprintf($*_), $*_)`,
	).
		Where(m["l"].Type.Implements(`github.com/Stennix/tilemerge/internal/logger.Logger`) &&
			m["level"].Text.Matches(`^(Trace|Debug|Info|Warn|Error)$`)).
		Report("pass values as logger fields instead of formatting the message")
}

package suite

import (
	"context"
	"fmt"
	"testing"

	"github.com/robotarm/armsuite/internal/check"
)

func benchCases(n int) []Case {
	cases := make([]Case, n)
	for i := range cases {
		cases[i] = Case{
			Group: "Bench",
			Name:  fmt.Sprintf("Case%03d", i),
			Func: func(t *T) {
				t.Expect(check.Exact(i+1, i+1))
				t.Expect(check.Near(3.14150, 3.14159, 1e-4))
			},
		}
	}
	return cases
}

func BenchmarkRunner_Sequential(b *testing.B) {
	cases := benchCases(100)
	runner := &Runner{Parallelism: 1}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runner.Run(ctx, cases)
	}
}

func BenchmarkRunner_Parallel(b *testing.B) {
	cases := benchCases(100)
	runner := &Runner{Parallelism: 8}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runner.Run(ctx, cases)
	}
}

//go:build property
// +build property

package task

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSeriesProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("series runs exactly the prefix up to the first fatal failure", prop.ForAll(
		func(outcomes []bool) bool {
			var ran []int
			members := make([]Node, len(outcomes))
			for i, ok := range outcomes {
				members[i] = New(fmt.Sprintf("t%d", i), func(context.Context) error {
					ran = append(ran, i)
					if !ok {
						return stderrors.New("fail")
					}
					return nil
				})
			}

			result := NewScheduler(nil, nil).Run(context.Background(), Series("s", members...))

			firstFailure := -1
			for i, ok := range outcomes {
				if !ok {
					firstFailure = i
					break
				}
			}
			if firstFailure < 0 {
				return result.Succeeded() && len(ran) == len(outcomes)
			}
			if len(ran) != firstFailure+1 || result.Err == nil {
				return false
			}
			for i, idx := range ran {
				if i != idx {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("stream failures never abort a series", prop.ForAll(
		func(outcomes []bool) bool {
			ran := 0
			members := make([]Node, len(outcomes))
			for i, ok := range outcomes {
				members[i] = Stream(fmt.Sprintf("s%d", i), func(context.Context) error {
					ran++
					if !ok {
						return stderrors.New("transform failed")
					}
					return nil
				})
			}

			result := NewScheduler(nil, nil).Run(context.Background(), Series("s", members...))

			failed := 0
			for _, ok := range outcomes {
				if !ok {
					failed++
				}
			}
			return result.Err == nil && ran == len(outcomes) && len(result.Failures) == failed
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

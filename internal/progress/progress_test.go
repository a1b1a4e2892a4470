package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport(t *testing.T) {
	var got []string
	ctx := With(context.Background(), func(msg string) { got = append(got, msg) })

	Report(ctx, "launching")
	Reportf(ctx, "item %d/%d", 2, 5)

	assert.Equal(t, []string{"launching", "item 2/5"}, got)
}

func TestReportWithoutCallback(t *testing.T) {
	assert.NotPanics(t, func() {
		Report(context.Background(), "ignored")
		Reportf(context.Background(), "ignored %d", 1)
		Report(With(context.Background(), nil), "ignored")
	})
}

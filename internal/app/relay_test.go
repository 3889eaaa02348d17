package app

import (
	"testing"
	"time"

	"github.com/MinJyun/FuturesTrade/internal/model"
)

func TestLatestCompletedBar(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.Local)
	bars := []model.KBar{
		{Code: "TXFR1", BucketStart: base},
		{Code: "TXFR1", BucketStart: base.Add(time.Minute)},
		{Code: "TXFR1", BucketStart: base.Add(2 * time.Minute)},
	}

	tests := []struct {
		name   string
		cutoff time.Time
		want   *time.Time
	}{
		{"nothing completed", base, nil},
		{"first bucket closed", base.Add(time.Minute), &bars[0].BucketStart},
		{"middle of series", base.Add(2 * time.Minute), &bars[1].BucketStart},
		{"all closed", base.Add(3 * time.Minute), &bars[2].BucketStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := latestCompletedBar(bars, tt.cutoff)
			if tt.want == nil {
				if got != nil {
					t.Errorf("expected no bar, got bucket %v", got.BucketStart)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected bucket %v, got none", *tt.want)
			}
			if !got.BucketStart.Equal(*tt.want) {
				t.Errorf("got bucket %v; want %v", got.BucketStart, *tt.want)
			}
		})
	}

	if latestCompletedBar(nil, base) != nil {
		t.Error("empty series must yield no bar")
	}
}

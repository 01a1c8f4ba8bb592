package comprehensiveness

import (
	"testing"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
)

func TestValidCoords(t *testing.T) {
	tests := []struct {
		coords string
		want   bool
	}{
		{"1.2921 36.8219", true},
		{"-90 180", true},
		{"0 0", false},
		{"91 10", false},
		{"10 -181", false},
		{"10", false},
		{"abc def", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := validCoords(tc.coords); got != tc.want {
			t.Errorf("validCoords(%q) = %v, want %v", tc.coords, got, tc.want)
		}
	}
}

func TestValidURL(t *testing.T) {
	tests := []struct {
		node *domain.Node
		want bool
	}{
		{&domain.Node{Tag: "document-link", Attrs: map[string]string{"url": "https://example.org/report.pdf"}}, true},
		{&domain.Node{Tag: "document-link", Attrs: map[string]string{"url": "example.org/report.pdf"}}, false},
		{&domain.Node{Tag: "activity-website", Attrs: map[string]string{}, Text: "http://example.org"}, true},
		{&domain.Node{Tag: "activity-website", Attrs: map[string]string{}, Text: "not a url"}, false},
		{nil, false},
	}
	for _, tc := range tests {
		if got := validURL(tc.node); got != tc.want {
			t.Errorf("validURL(%+v) = %v, want %v", tc.node, got, tc.want)
		}
	}
}

func TestPercentageSumIs100(t *testing.T) {
	el := func(percentage string) *domain.Node {
		return &domain.Node{Tag: "sector", Attrs: map[string]string{"percentage": percentage}}
	}

	tests := []struct {
		name     string
		elements []*domain.Node
		want     bool
	}{
		{"no elements", nil, true},
		{"single element without percentage", []*domain.Node{el("")}, true},
		{"sums to 100", []*domain.Node{el("60"), el("40")}, true},
		{"sums to 99", []*domain.Node{el("60"), el("39")}, false},
		{"fractional sum to 100", []*domain.Node{el("33.5"), el("66.5")}, true},
	}
	for _, tc := range tests {
		if got := percentageSumIs100(tc.elements); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPercentageSumIs100ByVocab(t *testing.T) {
	el := func(vocab, percentage string) *domain.Node {
		return &domain.Node{Tag: "sector", Attrs: map[string]string{"vocabulary": vocab, "percentage": percentage}}
	}

	ok := percentageSumIs100ByVocab([]*domain.Node{
		el("1", "50"), el("1", "50"),
		el("2", "100"),
	})
	if !ok {
		t.Error("per-vocabulary splits each summing to 100 should pass")
	}

	bad := percentageSumIs100ByVocab([]*domain.Node{
		el("1", "50"), el("1", "49"),
		el("2", "100"),
	})
	if bad {
		t.Error("one vocabulary off by one should fail")
	}
}

package fqn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"three levels", []string{"svc", "db", "t1"}, "svc.db.t1"},
		{"single segment", []string{"svc"}, "svc"},
		{"skips empty segments", []string{"svc", "", "t1"}, "svc.t1"},
		{"no segments", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build(tt.parts...))
		})
	}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"svc", "db", "t1"}, Split("svc.db.t1"))
	assert.Nil(t, Split(""))
}

func TestParentAndLeaf(t *testing.T) {
	assert.Equal(t, "svc.db", Parent("svc.db.t1"))
	assert.Equal(t, "", Parent("svc"))
	assert.Equal(t, "t1", Leaf("svc.db.t1"))
	assert.Equal(t, "svc", Leaf("svc"))
}

func TestIsDescendant(t *testing.T) {
	assert.True(t, IsDescendant("svc.db.t1", "svc.db"))
	assert.True(t, IsDescendant("svc.db", "svc"))
	assert.False(t, IsDescendant("svc.db", "sv"))
	assert.False(t, IsDescendant("svc", "svc"))
	assert.False(t, IsDescendant("svc", ""))
}

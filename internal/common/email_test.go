package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "root@rosedal.test", NormalizeEmail("  Root@Rosedal.TEST "))
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"guard@rosedal.test", true},
		{"first.last@mail.rosedal.test", true},
		{"", false},
		{"guard", false},
		{"guard@", false},
		{"a@localhost", false},
		{"Guard <guard@rosedal.test>", false},
		{"guard@rosedal.test, other@rosedal.test", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEmail(tt.email))
		})
	}
}

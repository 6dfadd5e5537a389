package logx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "203.0.113.42:5555", want: "203.0.113.0"},
		{in: "198.51.100.7", want: "198.51.100.0"},
		{in: "127.0.0.1:80", want: "127.0.0.1"},
		{in: "[2001:db8:85a3::8a2e:370:7334]:443", want: "2001:db8:85a3::"},
		{in: "not-an-ip", want: "unknown_ip"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, AnonymizeIP(tt.in))
		})
	}
}

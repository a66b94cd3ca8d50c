package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	serverFlags := []string{"-a", "-d", "-M"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate values",
			args:    []string{"-a", ":8080", "-d", "postgres://x"},
			allowed: serverFlags,
			want:    []string{"-a", ":8080", "-d", "postgres://x"},
		},
		{
			name:    "joined value",
			args:    []string{"-M=1073741824", "-z", "9"},
			allowed: serverFlags,
			want:    []string{"-M=1073741824"},
		},
		{
			name:    "double dash matches single dash entry",
			args:    []string{"--a", ":9090"},
			allowed: serverFlags,
			want:    []string{"--a", ":9090"},
		},
		{
			name:    "bare names in allowed list",
			args:    []string{"-k", "secret"},
			allowed: []string{"k"},
			want:    []string{"-k", "secret"},
		},
		{
			name:    "foreign flags and positionals dropped",
			args:    []string{"-z", "1", "stray", "--other=2"},
			allowed: serverFlags,
			want:    []string{},
		},
		{
			name:    "next flag is not taken as value",
			args:    []string{"-a", "-d", "dsn"},
			allowed: serverFlags,
			want:    []string{"-a", "-d", "dsn"},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-a"},
			allowed: serverFlags,
			want:    []string{"-a"},
		},
		{
			name:    "stops at terminator",
			args:    []string{"-a", ":1", "--", "-d", "dsn"},
			allowed: serverFlags,
			want:    []string{"-a", ":1"},
		},
		{
			name:    "lone dash is a value",
			args:    []string{"-a", "-"},
			allowed: serverFlags,
			want:    []string{"-a", "-"},
		},
		{
			name:    "repeats kept in order",
			args:    []string{"-a", "one", "-a", "two"},
			allowed: serverFlags,
			want:    []string{"-a", "one", "-a", "two"},
		},
		{
			name:    "empty",
			args:    nil,
			allowed: serverFlags,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short", []string{"-c", "/etc/gophdrive.json"}, "/etc/gophdrive.json"},
		{"long joined", []string{"--config=/tmp/a.json", "-a", ":1"}, "/tmp/a.json"},
		{"last wins", []string{"-c", "1.json", "-config", "2.json"}, "2.json"},
		{"absent", []string{"-a", ":8080", "-k", "x"}, ""},
		{"missing value", []string{"-c"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigPath(tt.args))
		})
	}
}

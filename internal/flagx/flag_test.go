package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value form",
			args:    []string{"-d", "navlock.db", "-x", "other"},
			allowed: []string{"-d"},
			want:    []string{"-d", "navlock.db"},
		},
		{
			name:    "equals form",
			args:    []string{"--dsn=navlock.db", "--other=1"},
			allowed: []string{"--dsn"},
			want:    []string{"--dsn=navlock.db"},
		},
		{
			name:    "flag without value followed by another flag",
			args:    []string{"-v", "-d", "x.db"},
			allowed: []string{"-v"},
			want:    []string{"-v"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"-a", "b"},
			allowed: nil,
			want:    []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FilterArgs(tc.args, tc.allowed))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	t.Run("short flag", func(t *testing.T) {
		os.Args = []string{"app", "-c", "/path/short.json"}
		assert.Equal(t, "/path/short.json", JsonConfigFlags())
	})

	t.Run("long flag", func(t *testing.T) {
		os.Args = []string{"app", "-config=/path/long.json"}
		assert.Equal(t, "/path/long.json", JsonConfigFlags())
	})

	t.Run("absent", func(t *testing.T) {
		os.Args = []string{"app"}
		assert.Empty(t, JsonConfigFlags())
	})
}

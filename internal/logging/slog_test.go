package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec), sc.Text())
		out = append(out, rec)
	}
	return out
}

func TestJSONLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, "debug")
	ctx := context.Background()

	log.Debug(ctx, "part stored", "index", 3)
	log.Info(ctx, "upload finalized", "size", 11)
	log.Warn(ctx, "scanner slow", "ms", 900)
	log.Error(ctx, "blob remove failed", "key", "staging/x")

	recs := records(t, &buf)
	require.Len(t, recs, 4)

	want := []struct {
		level, msg, key string
		val             any
	}{
		{"DEBUG", "part stored", "index", float64(3)},
		{"INFO", "upload finalized", "size", float64(11)},
		{"WARN", "scanner slow", "ms", float64(900)},
		{"ERROR", "blob remove failed", "key", "staging/x"},
	}
	for i, w := range want {
		assert.Equal(t, w.level, recs[i]["level"])
		assert.Equal(t, w.msg, recs[i]["msg"])
		assert.Equal(t, w.val, recs[i][w.key])
	}
}

func TestJSONLogger_WithKeepsParentUntouched(t *testing.T) {
	var buf bytes.Buffer
	base := NewJSONLogger(&buf, "info")
	child := base.With("module", "upload_manager")

	child.Info(context.TODO(), "session opened", "owner", "alice")
	base.Info(context.TODO(), "plain")

	recs := records(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "upload_manager", recs[0]["module"])
	assert.Equal(t, "alice", recs[0]["owner"])
	assert.NotContains(t, recs[1], "module")
}

func TestJSONLogger_LevelFilter(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"warn", []string{"w", "e"}},
		{"ERROR", []string{"e"}},
		{"loud", []string{"i", "w", "e"}},
		{"", []string{"i", "w", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewJSONLogger(&buf, tt.level)
			ctx := context.Background()
			log.Debug(ctx, "d")
			log.Info(ctx, "i")
			log.Warn(ctx, "w")
			log.Error(ctx, "e")

			var got []string
			for _, r := range records(t, &buf) {
				got = append(got, r["msg"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
)

func newSession(t *testing.T, mutate func(*Options)) *Session {
	t.Helper()
	opts := fakeOptions(t)
	if mutate != nil {
		mutate(&opts)
	}
	s := New(opts)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunReturnsResult(t *testing.T) {
	s := newSession(t, nil)
	assert.Equal(t, Idle, s.State())

	res, err := s.Run(context.Background(), nil, "#!noise progress 10%\n#!result {\"mL\": [[1.5]]}\n")
	require.NoError(t, err)
	assert.Equal(t, Running, s.State())
	assert.JSONEq(t, `{"mL": [[1.5]]}`, string(res.Line))
	assert.Contains(t, res.Values, "mL")

	var out struct {
		L [][]float64 `json:"mL"`
	}
	require.NoError(t, res.Decode(&out))
	assert.Equal(t, [][]float64{{1.5}}, out.L)
}

func TestProcessIsReused(t *testing.T) {
	s := newSession(t, nil)
	ctx := context.Background()
	_, err := s.Run(ctx, nil, "#!result {\"n\": 1}")
	require.NoError(t, err)
	pid := s.Pid()
	require.NotZero(t, pid)

	res, err := s.Run(ctx, nil, "#!result {\"n\": 2}")
	require.NoError(t, err)
	assert.Equal(t, pid, s.Pid())
	assert.Equal(t, float64(2), res.Values["n"])
}

func TestSentinelIgnoresEarlierJSONShapedLogs(t *testing.T) {
	s := newSession(t, nil)
	res, err := s.Run(context.Background(), nil, "#!noise {\"progress\": 0.5}\n#!result {\"mC\": [[2]]}\n#!noise done")
	require.NoError(t, err)
	assert.JSONEq(t, `{"mC": [[2]]}`, string(res.Line))
}

func TestLegacyFramingTakesFirstJSONLine(t *testing.T) {
	s := newSession(t, func(o *Options) { o.Sentinel = false })
	res, err := s.Run(context.Background(), nil, "#!noise warming up\n#!result {\"a\": 1}\n")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(res.Line))
}

func TestNoResultWhenScriptPrintsNothing(t *testing.T) {
	s := newSession(t, nil)
	_, err := s.Run(context.Background(), nil, "#!noise nothing to see")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.NoResult))
	assert.True(t, errs.Retryable(err))
	// 进程仍可继续使用
	assert.Equal(t, Running, s.State())
	_, err = s.Run(context.Background(), nil, "#!result {}")
	assert.NoError(t, err)
}

func TestNoResultWhenProcessExits(t *testing.T) {
	s := newSession(t, nil)
	_, err := s.Run(context.Background(), nil, "#!exit")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.NoResult))
	assert.Equal(t, Closed, s.State())

	_, err = s.Run(context.Background(), nil, "#!result {}")
	assert.True(t, errs.IsKind(err, errs.InvalidInput))
}

func TestResultBeforeExitIsKept(t *testing.T) {
	s := newSession(t, nil)
	res, err := s.Run(context.Background(), nil, "#!result {\"ok\": true}\n#!exit")
	require.NoError(t, err)
	assert.Equal(t, true, res.Values["ok"])
	assert.Equal(t, Closed, s.State())
}

func TestTimeoutKillsProcess(t *testing.T) {
	s := newSession(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := s.Run(ctx, nil, "#!hang")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, Closed, s.State())
}

func TestMalformedJSON(t *testing.T) {
	s := newSession(t, nil)
	_, err := s.Run(context.Background(), nil, "#!noise {not json}\n")
	// 非法 JSON 不被当作结果行
	assert.True(t, errs.IsKind(err, errs.NoResult))
}

func TestBindingsReachScript(t *testing.T) {
	s := newSession(t, nil)
	params := Params{Param("W", 2.5e-5), Param("N", 3), Param("loss", true)}
	res, err := s.Run(context.Background(), params, "#!vars")
	require.NoError(t, err)
	assert.Equal(t, "W = 2.5e-05;N = 3;loss = True", res.Values["vars"])
}

func TestInvalidBindingName(t *testing.T) {
	s := newSession(t, nil)
	_, err := s.Run(context.Background(), Params{Param("1x", 1)}, "#!result {}")
	assert.True(t, errs.IsKind(err, errs.InvalidInput))
}

func TestInitScriptRunsOnce(t *testing.T) {
	s := newSession(t, func(o *Options) { o.InitScript = "#!define helper\n#!noise init done" })
	require.NoError(t, s.Start(context.Background()))
	res, err := s.Run(context.Background(), nil, "#!require helper\n#!result {\"ok\": 1}")
	require.NoError(t, err)
	assert.Equal(t, float64(1), res.Values["ok"])
}

func TestMissingExecutable(t *testing.T) {
	s := New(Options{Executable: "definitely-not-a-solver-binary"})
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.ProcessUnavailable))

	_, err = s.Run(context.Background(), nil, "")
	assert.True(t, errs.IsKind(err, errs.ProcessUnavailable))
}

func TestCloseIsIdempotent(t *testing.T) {
	s := newSession(t, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, Closed, s.State())
	_, err := s.Run(context.Background(), nil, "#!result {}")
	assert.True(t, errs.IsKind(err, errs.InvalidInput))

	idle := New(fakeOptions(t))
	assert.NoError(t, idle.Close())
	assert.Equal(t, Closed, idle.State())
}

func TestScriptFilesAreRemoved(t *testing.T) {
	opts := fakeOptions(t)
	s := New(opts)
	t.Cleanup(func() { _ = s.Close() })
	_, err := s.Run(context.Background(), nil, "#!result {}")
	require.NoError(t, err)
	_, _ = s.Run(context.Background(), nil, "#!noise no result")
	entries, err := os.ReadDir(opts.ScriptDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

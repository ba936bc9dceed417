// Package sweep 批量求解多个几何截面：每个截面使用独立的求解器进程，失败只影响该截面。
package sweep

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/internal/logging"
	"github.com/1lj4s/HowToElementBuilder/rlgc"
	"github.com/1lj4s/HowToElementBuilder/session"
)

var geometriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sweep_geometries_total",
	Help: "Total solved geometries by result",
}, []string{"result"})

// Solver 求解器会话
type Solver interface {
	Run(ctx context.Context, params session.Params, script string) (session.Result, error)
	Close() error
}

// Job 一个待求解的几何截面
//
//	Analytic 非空时不启动求解器，直接调用它得到结果
type Job struct {
	Name     string
	Params   session.Params
	Script   string
	Analytic func() (*rlgc.RawResult, error)
}

// Outcome 单个截面的求解结果
type Outcome struct {
	Job      Job
	Raw      *rlgc.RawResult
	Err      error
	Attempts int
	Elapsed  time.Duration
}

// Runner 批量求解器
type Runner struct {
	// Workers 并行进程数（<=0 时取 GOMAXPROCS）
	Workers int
	// Open 创建新的求解器会话，每个截面调用一次（重试时再调用一次）
	Open func() Solver
	// Timeout 单次求解超时（0 表示不限）
	Timeout time.Duration
	// Logger 日志（nil 时使用全局日志）
	Logger *zap.Logger
}

// Run 求解全部截面，结果顺序与 jobs 一致
//
// NoResult 在新进程上重试一次；ProcessUnavailable 终止整个批次，未执行的截面记录同一错误并作为第二个返回值。
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	log := logging.Or(r.Logger)
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan int, len(jobs))
	for i := range jobs {
		work <- i
	}
	close(work)

	outcomes := make([]Outcome, len(jobs))
	var (
		wg    sync.WaitGroup
		once  sync.Once
		fatal error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				if ctx.Err() != nil {
					outcomes[i] = Outcome{Job: jobs[i], Err: ctx.Err()}
					continue
				}
				out := r.solve(ctx, jobs[i], log)
				outcomes[i] = out
				if errs.IsKind(out.Err, errs.ProcessUnavailable) {
					once.Do(func() {
						fatal = out.Err
						cancel()
					})
				}
			}
		}()
	}
	wg.Wait()

	for i := range outcomes {
		o := &outcomes[i]
		if o.Err != nil && fatal != nil && o.Attempts == 0 && o.Err != fatal {
			o.Err = errs.Wrap(errs.ProcessUnavailable, fatal, "batch aborted before %q", o.Job.Name)
		}
	}
	return outcomes, fatal
}

// solve 求解单个截面并记录结果
func (r *Runner) solve(ctx context.Context, job Job, log *zap.Logger) Outcome {
	start := time.Now()
	out := r.solveOnce(ctx, job, log)
	out.Elapsed = time.Since(start)
	record(job, out, log)
	return out
}

func (r *Runner) solveOnce(ctx context.Context, job Job, log *zap.Logger) Outcome {
	out := Outcome{Job: job}
	if job.Analytic != nil {
		out.Attempts = 1
		out.Raw, out.Err = job.Analytic()
		return out
	}
	if r.Open == nil {
		out.Err = errs.New(errs.ProcessUnavailable, "no solver configured for %q", job.Name)
		return out
	}
	for out.Attempts < 2 {
		out.Attempts++
		out.Raw, out.Err = r.attempt(ctx, job)
		if out.Err == nil || !errs.Retryable(out.Err) {
			break
		}
		if out.Attempts < 2 {
			log.Warn("no result from solver, retrying on a fresh process",
				zap.String("geometry", job.Name), zap.Int("attempt", out.Attempts))
		}
	}
	return out
}

func (r *Runner) attempt(ctx context.Context, job Job) (*rlgc.RawResult, error) {
	s := r.Open()
	defer s.Close()
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	res, err := s.Run(ctx, job.Params, job.Script)
	if err != nil {
		return nil, err
	}
	return rlgc.Decode(res.Line)
}

func record(job Job, out Outcome, log *zap.Logger) {
	if out.Err == nil {
		geometriesTotal.WithLabelValues("ok").Inc()
		log.Info("geometry solved", zap.String("geometry", job.Name), zap.Int("attempts", out.Attempts))
		return
	}
	kind := string(errs.KindOf(out.Err))
	if kind == "" {
		kind = "other"
	}
	geometriesTotal.WithLabelValues(kind).Inc()
	fields := []zap.Field{zap.String("geometry", job.Name), zap.Error(out.Err)}
	for _, p := range job.Params {
		fields = append(fields, zap.Any(p.Name, p.Value))
	}
	log.Warn("geometry failed", fields...)
}

// Failed 失败的截面
func Failed(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

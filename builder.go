// Package elementbuilder 串联整个流程：读取配置、批量求解截面、转换为S参数、组合网络并写出结果。
package elementbuilder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/1lj4s/HowToElementBuilder/convert"
	"github.com/1lj4s/HowToElementBuilder/internal/config"
	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/internal/logging"
	"github.com/1lj4s/HowToElementBuilder/network"
	"github.com/1lj4s/HowToElementBuilder/report"
	"github.com/1lj4s/HowToElementBuilder/rlgc"
	"github.com/1lj4s/HowToElementBuilder/session"
	"github.com/1lj4s/HowToElementBuilder/structure"
	"github.com/1lj4s/HowToElementBuilder/sweep"
	"github.com/1lj4s/HowToElementBuilder/touchstone"
)

// Builder 元件构建器
type Builder struct {
	Config *config.Config
	// Analytic 为 true 时用微带闭式公式代替外部求解器
	Analytic bool
	// Open 创建求解器会话，nil 时按配置启动外部进程
	Open func() sweep.Solver
	// Logger 日志（nil 时使用全局日志）
	Logger *zap.Logger
}

// Result 单个结构的结果
type Result struct {
	Name   string
	Block  *network.Block
	Modal  []*convert.Modal
	Files  []string
	Failed []sweep.Outcome
	Err    error
}

// NewBuilder 读取配置并初始化日志
func NewBuilder(path string) (*Builder, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := logging.Initialize(*cfg.Logging); err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "initializing logging")
	}
	return &Builder{Config: cfg}, nil
}

// plan 一个结构的求解方案及其在批次中的截面
type plan struct {
	cfg    config.StructureConfig
	layout *structure.Layout
	first  int
	count  int
}

// Build 执行全部结构
//
// 单个结构失败只记录在其 Result 中；求解器不可用时返回已得到的结果与该错误。
func (b *Builder) Build(ctx context.Context) ([]Result, error) {
	log := logging.Or(b.Logger)
	cfg := b.Config

	var sub structure.Substrate
	if b.Analytic {
		var err error
		if sub, err = cfg.AnalyticSubstrate(); err != nil {
			return nil, err
		}
	}

	var (
		plans   []plan
		jobs    []sweep.Job
		results = make([]Result, len(cfg.Structures))
	)
	for i, sc := range cfg.Structures {
		results[i].Name = sc.Name
		spec, err := sc.Spec()
		if err != nil {
			results[i].Err = err
			continue
		}
		layout, err := structure.Plan(spec)
		if err != nil {
			results[i].Err = err
			continue
		}
		p := plan{cfg: sc, layout: layout, first: len(jobs)}
		structJobs, err := b.jobs(sc, layout, sub)
		if err != nil {
			results[i].Err = err
			continue
		}
		jobs = append(jobs, structJobs...)
		p.count = len(structJobs)
		plans = append(plans, p)
	}

	runner := &sweep.Runner{
		Workers: cfg.Simulation.Workers,
		Open:    b.open(),
		Timeout: cfg.Solver.TimeoutDuration(),
		Logger:  log,
	}
	outcomes, fatal := runner.Run(ctx, jobs)

	idx := make(map[string]int, len(results))
	for i := range results {
		idx[results[i].Name] = i
	}
	for _, p := range plans {
		res := &results[idx[p.cfg.Name]]
		own := outcomes[p.first : p.first+p.count]
		if failed := sweep.Failed(own); len(failed) > 0 {
			res.Failed = failed
			res.Err = errs.Wrap(errs.KindOf(failed[0].Err), failed[0].Err,
				"%d of %d cross-sections of %q failed", len(failed), len(own), p.cfg.Name)
			continue
		}
		raws := make([]*rlgc.RawResult, len(own))
		for k, o := range own {
			raws[k] = o.Raw
		}
		res.Block, res.Modal, res.Err = b.compose(ctx, p, raws)
		if res.Err != nil {
			log.Warn("structure failed", zap.String("structure", p.cfg.Name), zap.Error(res.Err))
			continue
		}
		res.Files, res.Err = b.write(p.cfg.Name, res.Block, raws)
		if res.Err == nil {
			log.Info("structure built", zap.String("structure", p.cfg.Name),
				zap.Int("ports", res.Block.Ports()), zap.Strings("files", res.Files))
		}
	}
	return results, fatal
}

// jobs 为结构的每个截面生成求解任务
func (b *Builder) jobs(sc config.StructureConfig, layout *structure.Layout, sub structure.Substrate) ([]sweep.Job, error) {
	cfg := b.Config
	base := session.Params{}
	for _, k := range sortedKeys(cfg.Substrate) {
		base = base.With(k, cfg.Substrate[k])
	}
	for _, k := range sortedKeys(sc.Params) {
		base = base.With(k, sc.Params[k])
	}
	vectors := make([]string, 0, len(sc.Vectors))
	for k := range sc.Vectors {
		vectors = append(vectors, k)
	}
	sort.Strings(vectors)
	for _, k := range vectors {
		base = base.With(k, sc.Vectors[k])
	}
	base = base.With("loss", *cfg.Simulation.Loss).With("loss_frequencies", cfg.LossFrequencies())

	widths := layout.Widths
	if len(widths) == 0 {
		if b.Analytic {
			return nil, errs.New(errs.InvalidInput, "structure %q has no width W for the analytic model", sc.Name)
		}
		widths = []float64{0}
	}
	if !b.Analytic && strings.TrimSpace(sc.Script) == "" {
		return nil, errs.New(errs.InvalidInput, "structure %q has no script", sc.Name)
	}

	jobs := make([]sweep.Job, len(widths))
	for i, w := range widths {
		name := sc.Name
		if len(widths) > 1 {
			name = fmt.Sprintf("%s[%d]", sc.Name, i)
		}
		params := base
		if len(layout.Widths) > 0 {
			params = base.With("W", w)
		}
		job := sweep.Job{Name: name, Params: params, Script: sc.Script}
		if b.Analytic {
			w := w
			job.Analytic = func() (*rlgc.RawResult, error) {
				ms, err := structure.AnalyzeMicrostrip(sub, w)
				if err != nil {
					return nil, err
				}
				return ms.Raw(cfg.LossFrequencies())
			}
		}
		jobs[i] = job
	}
	return jobs, nil
}

func (b *Builder) open() func() sweep.Solver {
	if b.Open != nil {
		return b.Open
	}
	if b.Analytic {
		return nil
	}
	sc := b.Config.Solver
	opts := session.Options{
		Executable: sc.Executable,
		Args:       sc.Args,
		InitScript: sc.InitScript,
		Sentinel:   *sc.Sentinel,
		Logger:     b.Logger,
	}
	return func() sweep.Solver { return session.New(opts) }
}

// compose 展开截面、转换每一段并组合网络
func (b *Builder) compose(ctx context.Context, p plan, raws []*rlgc.RawResult) (*network.Block, []*convert.Modal, error) {
	cfg := b.Config
	segments, err := p.layout.Expand(raws)
	if err != nil {
		return nil, nil, err
	}

	type converted struct {
		block *network.Block
		modal *convert.Modal
	}
	done := make(map[*rlgc.RawResult]converted, len(raws))
	blocks := make([]*network.Block, len(segments))
	var modal []*convert.Modal
	for i, raw := range segments {
		if c, ok := done[raw]; ok {
			blocks[i] = c.block
			continue
		}
		t, err := rlgc.Assemble(raw, cfg.LossFrequencies(), cfg.Sweep(), *cfg.Simulation.Loss)
		if err != nil {
			return nil, nil, err
		}
		seg, err := rlgc.NewSegment(t, p.layout.SegmentLength, cfg.Simulation.Z0)
		if err != nil {
			return nil, nil, err
		}
		blk, m, err := convert.Convert(ctx, seg, convert.Options{Workers: cfg.Simulation.ConvertWorkers, Logger: b.Logger})
		if err != nil {
			return nil, nil, errs.Wrap(errs.KindOf(err), err, "segment %d of %q", i, p.cfg.Name)
		}
		done[raw] = converted{blk, m}
		blocks[i] = blk
		modal = append(modal, m)
	}

	out, err := p.layout.Compose(blocks)
	if err != nil {
		return nil, nil, err
	}
	if len(p.cfg.Ports) > 0 {
		terms, err := network.ParsePorts(p.cfg.Ports)
		if err != nil {
			return nil, nil, err
		}
		if out, err = network.Terminate(out, terms); err != nil {
			return nil, nil, err
		}
	}
	return out, modal, nil
}

// write 写出 Touchstone 文件及可选的图表与原始结果
func (b *Builder) write(name string, blk *network.Block, raws []*rlgc.RawResult) ([]string, error) {
	out := b.Config.Output
	base := filepath.Join(out.Dir, name)
	var files []string

	ts := touchstone.FileName(base, blk.Ports())
	opts := b.Config.TouchstoneOptions()
	opts.Comments = []string{fmt.Sprintf("%s: %d ports, z0 %g", name, blk.Ports(), blk.Z0)}
	if err := touchstone.WriteFile(ts, blk, opts); err != nil {
		return files, err
	}
	files = append(files, ts)

	if out.Charts {
		path := base + ".html"
		if err := renderCharts(path, name, blk); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	if out.Plots != "" {
		path := base + "." + strings.ToLower(out.Plots)
		p := &report.Plot{Title: name, Block: blk, Pairs: report.DefaultPairs(blk.Ports())}
		if err := p.Save(path); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	if out.SaveRaw {
		for i, raw := range raws {
			path := base + ".json"
			if len(raws) > 1 {
				path = fmt.Sprintf("%s-%d.json", base, i)
			}
			if err := SaveRaw(path, raw); err != nil {
				return files, err
			}
			files = append(files, path)
		}
	}
	return files, nil
}

func renderCharts(path, title string, blk *network.Block) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.Io, err, "creating directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.Io, err, "creating %s", path)
	}
	c := &report.Charts{Title: title, Block: blk, Pairs: report.DefaultPairs(blk.Ports())}
	if err := c.Render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errs.Wrap(errs.Io, err, "closing %s", path)
	}
	return nil
}

// SaveRaw 保存求解器原始结果（JSON，键名与求解器输出一致）
func SaveRaw(path string, raw *rlgc.RawResult) error {
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return errs.Wrap(errs.MalformedResult, err, "encoding raw result")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.Io, err, "creating directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Wrap(errs.Io, err, "writing %s", path)
	}
	return nil
}

// LoadRaw 读取保存的原始结果
func LoadRaw(path string) (*rlgc.RawResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.Io, err, "reading %s", path)
	}
	return rlgc.Decode(data)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

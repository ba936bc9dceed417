// Package config 读取扫描配置（YAML 或 HCL）。
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/internal/logging"
	"github.com/1lj4s/HowToElementBuilder/rlgc"
	"github.com/1lj4s/HowToElementBuilder/structure"
	"github.com/1lj4s/HowToElementBuilder/touchstone"
)

// Config 一次扫描的完整配置
type Config struct {
	// Solver 外部场求解器
	Solver *SolverConfig `yaml:"solver" hcl:"solver,block"`

	// Simulation 频率与参考阻抗
	Simulation *SimulationConfig `yaml:"simulation" hcl:"simulation,block"`

	// Substrate 基板参数，作为变量绑定到每个脚本
	Substrate map[string]float64 `yaml:"substrate" hcl:"substrate,optional"`

	// Structures 待求解结构
	Structures []StructureConfig `yaml:"structures" hcl:"structure,block"`

	// Output 输出设置
	Output *OutputConfig `yaml:"output" hcl:"output,block"`

	// Logging 日志设置
	Logging *logging.Config `yaml:"logging" hcl:"logging,block"`

	lossHz  []float64
	sweepHz []float64
}

// SolverConfig 求解器进程设置
type SolverConfig struct {
	Executable     string   `yaml:"executable" hcl:"executable,optional"`
	Args           []string `yaml:"args" hcl:"args,optional"`
	InitScript     string   `yaml:"init_script" hcl:"init_script,optional"`
	InitScriptFile string   `yaml:"init_script_file" hcl:"init_script_file,optional"`
	// Timeout 单次运行超时（time.ParseDuration 格式），空表示不限
	Timeout string `yaml:"timeout" hcl:"timeout,optional"`
	// Sentinel 是否使用结束标记分帧，默认 true
	Sentinel *bool `yaml:"sentinel" hcl:"sentinel,optional"`

	timeout time.Duration
}

// SimulationConfig 频率轴与参考阻抗
//
// 频率均以 Unit 为单位（默认 GHz）。
type SimulationConfig struct {
	Unit            string       `yaml:"unit" hcl:"unit,optional"`
	LossFrequencies []float64    `yaml:"loss_frequencies" hcl:"loss_frequencies,optional"`
	Sweep           *SweepConfig `yaml:"sweep" hcl:"sweep,block"`
	Frequencies     []float64    `yaml:"frequencies" hcl:"frequencies,optional"`
	Z0              float64      `yaml:"z0" hcl:"z0,optional"`
	Loss            *bool        `yaml:"loss" hcl:"loss,optional"`
	// Workers 并行求解的几何数
	Workers int `yaml:"workers" hcl:"workers,optional"`
	// ConvertWorkers 单段转换时的频点并行数
	ConvertWorkers int `yaml:"convert_workers" hcl:"convert_workers,optional"`
}

// SweepConfig 等步长扫描 [Start, Stop)
type SweepConfig struct {
	Start float64 `yaml:"start" hcl:"start"`
	Stop  float64 `yaml:"stop" hcl:"stop"`
	Step  float64 `yaml:"step" hcl:"step"`
}

// StructureConfig 单个结构
type StructureConfig struct {
	Name       string               `yaml:"name" hcl:"name,label"`
	Kind       string               `yaml:"kind" hcl:"kind"`
	Script     string               `yaml:"script" hcl:"script,optional"`
	ScriptFile string               `yaml:"script_file" hcl:"script_file,optional"`
	Length     float64              `yaml:"length" hcl:"length,optional"`
	Params     map[string]float64   `yaml:"params" hcl:"params,optional"`
	Vectors    map[string][]float64 `yaml:"vectors" hcl:"vectors,optional"`
	// Ports 端口端接代码（port/r/i/s/load:Z），空表示全部保留
	Ports []string     `yaml:"ports" hcl:"ports,optional"`
	Taper *TaperConfig `yaml:"taper" hcl:"taper,block"`
}

// TaperConfig 渐变参数
type TaperConfig struct {
	W1       float64 `yaml:"w1" hcl:"w1,optional"`
	W2       float64 `yaml:"w2" hcl:"w2,optional"`
	Profile  string  `yaml:"profile" hcl:"profile,optional"`
	Samples  int     `yaml:"samples" hcl:"samples,optional"`
	Segments int     `yaml:"segments" hcl:"segments,optional"`
}

// OutputConfig 输出设置
//
//	Plots - 静态图格式（png、svg），空表示不输出
type OutputConfig struct {
	Dir     string `yaml:"dir" hcl:"dir,optional"`
	Format  string `yaml:"format" hcl:"format,optional"`
	Unit    string `yaml:"unit" hcl:"unit,optional"`
	Charts  bool   `yaml:"charts" hcl:"charts,optional"`
	Plots   string `yaml:"plots" hcl:"plots,optional"`
	SaveRaw bool   `yaml:"save_raw" hcl:"save_raw,optional"`
}

// DefaultLossFrequencies 默认损耗求解频点（GHz）
var DefaultLossFrequencies = []float64{0.1, 0.5, 1, 5, 10, 20, 30, 40}

// Default 默认配置
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Solver == nil {
		c.Solver = &SolverConfig{}
	}
	if c.Solver.Sentinel == nil {
		on := true
		c.Solver.Sentinel = &on
	}
	if c.Simulation == nil {
		c.Simulation = &SimulationConfig{}
	}
	s := c.Simulation
	if s.Unit == "" {
		s.Unit = string(touchstone.GHz)
	}
	if s.LossFrequencies == nil {
		s.LossFrequencies = append([]float64(nil), DefaultLossFrequencies...)
	}
	if s.Sweep == nil && len(s.Frequencies) == 0 {
		s.Sweep = &SweepConfig{Start: 0.1, Stop: 40, Step: 0.1}
	}
	if s.Z0 == 0 {
		s.Z0 = 50
	}
	if s.Loss == nil {
		on := true
		s.Loss = &on
	}
	if c.Output == nil {
		c.Output = &OutputConfig{}
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "out"
	}
	if c.Output.Format == "" {
		c.Output.Format = string(touchstone.RI)
	}
	if c.Output.Unit == "" {
		c.Output.Unit = string(touchstone.GHz)
	}
	if c.Logging == nil {
		l := logging.DefaultConfig()
		c.Logging = &l
	}
}

// Load 读取配置文件，按扩展名选择 YAML 或 HCL
//
// 脚本文件路径相对于配置文件所在目录解析。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.Io, err, "reading config file")
	}

	c := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errs.Wrap(errs.InvalidInput, err, "parsing %s", path)
		}
	case ".hcl":
		if err := hclsimple.Decode(path, data, nil, c); err != nil {
			return nil, errs.Wrap(errs.InvalidInput, err, "parsing %s", path)
		}
	default:
		return nil, errs.New(errs.InvalidInput, "unsupported config extension %q (want .yaml, .yml or .hcl)", filepath.Ext(path))
	}
	c.applyDefaults()

	if err := c.readScripts(filepath.Dir(path)); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) readScripts(dir string) error {
	read := func(name string) (string, error) {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		b, err := os.ReadFile(name)
		if err != nil {
			return "", errs.Wrap(errs.Io, err, "reading script %s", name)
		}
		return string(b), nil
	}
	if f := c.Solver.InitScriptFile; f != "" {
		text, err := read(f)
		if err != nil {
			return err
		}
		c.Solver.InitScript = text
	}
	for i := range c.Structures {
		s := &c.Structures[i]
		if s.ScriptFile == "" {
			continue
		}
		text, err := read(s.ScriptFile)
		if err != nil {
			return err
		}
		s.Script = text
	}
	return nil
}

// Validate 检查配置并计算频率轴
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.Solver.Timeout != "" {
		d, err := time.ParseDuration(c.Solver.Timeout)
		if err != nil || d < 0 {
			return errs.New(errs.InvalidInput, "solver timeout %q is not a valid duration", c.Solver.Timeout)
		}
		c.Solver.timeout = d
	}

	s := c.Simulation
	scale, err := touchstone.Unit(strings.ToUpper(s.Unit)).Scale()
	if err != nil {
		return err
	}
	if !(s.Z0 > 0) {
		return errs.New(errs.InvalidInput, "z0 must be positive, got %g", s.Z0)
	}
	if s.Workers < 0 || s.ConvertWorkers < 0 {
		return errs.New(errs.InvalidInput, "workers must not be negative")
	}

	c.lossHz = scaled(s.LossFrequencies, scale)
	if *s.Loss {
		if err := rlgc.CheckSweep("loss frequencies", c.lossHz); err != nil {
			return err
		}
	}
	if len(s.Frequencies) > 0 {
		c.sweepHz = scaled(s.Frequencies, scale)
	} else {
		c.sweepHz, err = rlgc.LinearSweep(s.Sweep.Start*scale, s.Sweep.Stop*scale, s.Sweep.Step*scale)
		if err != nil {
			return err
		}
	}
	if err := rlgc.CheckSweep("analysis sweep", c.sweepHz); err != nil {
		return err
	}

	if _, err := touchstone.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	if _, err := touchstone.Unit(strings.ToUpper(c.Output.Unit)).Scale(); err != nil {
		return err
	}
	switch strings.ToLower(c.Output.Plots) {
	case "", "png", "svg":
	default:
		return errs.New(errs.InvalidInput, "plot format %q is not png or svg", c.Output.Plots)
	}

	if len(c.Structures) == 0 {
		return errs.New(errs.InvalidInput, "no structures configured")
	}
	seen := make(map[string]bool, len(c.Structures))
	for _, st := range c.Structures {
		if st.Name == "" {
			return errs.New(errs.InvalidInput, "structure without a name")
		}
		if seen[st.Name] {
			return errs.New(errs.InvalidInput, "duplicate structure name %q", st.Name)
		}
		seen[st.Name] = true
		if _, err := st.Spec(); err != nil {
			return err
		}
	}
	return nil
}

func scaled(v []float64, scale float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * scale
	}
	return out
}

// LossFrequencies 损耗求解频点（Hz），Validate 之后有效
func (c *Config) LossFrequencies() []float64 { return c.lossHz }

// Sweep 分析频率轴（Hz），Validate 之后有效
func (c *Config) Sweep() []float64 { return c.sweepHz }

// TimeoutDuration 单次运行超时，0 表示不限
func (s *SolverConfig) TimeoutDuration() time.Duration { return s.timeout }

// TouchstoneOptions 输出文件格式
func (c *Config) TouchstoneOptions() touchstone.Options {
	return touchstone.Options{
		Format: touchstone.Format(strings.ToUpper(c.Output.Format)),
		Unit:   touchstone.Unit(strings.ToUpper(c.Output.Unit)),
	}
}

// Spec 转换为结构描述
func (s StructureConfig) Spec() (structure.Spec, error) {
	kind, err := structure.ParseKind(s.Kind)
	if err != nil {
		return structure.Spec{}, errs.Wrap(errs.InvalidInput, err, "structure %q", s.Name)
	}
	spec := structure.Spec{Name: s.Name, Kind: kind, Length: s.Length, Scalars: s.Params}
	if s.Taper != nil {
		profile, err := structure.ParseProfile(s.Taper.Profile)
		if err != nil {
			return structure.Spec{}, err
		}
		spec.Taper = &structure.TaperSpec{
			W1:       s.Taper.W1,
			W2:       s.Taper.W2,
			Profile:  profile,
			Samples:  s.Taper.Samples,
			Segments: s.Taper.Segments,
		}
	}
	return spec, nil
}

// AnalyticSubstrate 从基板参数表中取出闭式估算所需的参数
//
// 键名大小写不敏感：er、h、t、tand、rho。
func (c *Config) AnalyticSubstrate() (structure.Substrate, error) {
	get := func(name string) float64 {
		for k, v := range c.Substrate {
			if strings.EqualFold(k, name) {
				return v
			}
		}
		return 0
	}
	sub := structure.Substrate{
		Er:   get("er"),
		H:    get("h"),
		T:    get("t"),
		TanD: get("tand"),
		Rho:  get("rho"),
	}
	return sub, sub.Validate()
}

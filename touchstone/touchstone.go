// Package touchstone 读写 Touchstone v1（.sNp）格式的S参数文件。
package touchstone

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/maths"
	"github.com/1lj4s/HowToElementBuilder/network"
)

// Format 复数数据的书写格式
type Format string

const (
	// RI 实部/虚部
	RI Format = "RI"
	// MA 幅值/角度（度）
	MA Format = "MA"
	// DB 分贝幅值/角度（度）
	DB Format = "DB"
)

// Unit 频率单位
type Unit string

// 频率单位
const (
	Hz  Unit = "HZ"
	KHz Unit = "KHZ"
	MHz Unit = "MHZ"
	GHz Unit = "GHZ"
)

// Scale 单位对应的倍率
func (u Unit) Scale() (float64, error) {
	switch Unit(strings.ToUpper(string(u))) {
	case Hz, "":
		return 1, nil
	case KHz:
		return 1e3, nil
	case MHz:
		return 1e6, nil
	case GHz:
		return 1e9, nil
	}
	return 0, errs.New(errs.InvalidInput, "unknown frequency unit %q", string(u))
}

// ParseFormat 解析格式名（大小写不敏感，空串为 RI）
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToUpper(strings.TrimSpace(s))); f {
	case RI, MA, DB:
		return f, nil
	case "":
		return RI, nil
	}
	return "", errs.New(errs.InvalidInput, "unknown touchstone format %q", s)
}

// Options 写出选项
type Options struct {
	Format   Format
	Unit     Unit
	Comments []string
}

// Write 写出S参数块
//
// 2 端口按 S11 S21 S12 S22 顺序写在一行；其余端口数按行优先，每行最多 4 个复数，每个矩阵行另起一行。
func Write(w io.Writer, b *network.Block, opts Options) error {
	if err := b.Validate(); err != nil {
		return err
	}
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return err
	}
	if opts.Unit == "" {
		opts.Unit = Hz
	}
	scale, err := opts.Unit.Scale()
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for _, c := range opts.Comments {
		fmt.Fprintf(bw, "! %s\n", c)
	}
	fmt.Fprintf(bw, "# %s S %s R %s\n", strings.ToUpper(string(opts.Unit)), format, formatFloat(b.Z0))

	p := b.Ports()
	for k, s := range b.S {
		freq := formatFloat(b.Freqs[k] / scale)
		if p <= 2 {
			bw.WriteString(freq)
			order := [][2]int{{0, 0}}
			if p == 2 {
				order = [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
			}
			for _, ij := range order {
				writePair(bw, s.Get(ij[0], ij[1]), format)
			}
			bw.WriteString("\n")
			continue
		}
		for i := 0; i < p; i++ {
			for j := 0; j < p; j++ {
				if j%4 == 0 {
					if i == 0 && j == 0 {
						bw.WriteString(freq)
					} else {
						bw.WriteString(" ")
					}
				}
				writePair(bw, s.Get(i, j), format)
				if j%4 == 3 || j == p-1 {
					bw.WriteString("\n")
				}
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return errs.Wrap(errs.Io, err, "writing touchstone data")
	}
	return nil
}

func writePair(w *bufio.Writer, v complex128, format Format) {
	var a, b float64
	switch format {
	case MA:
		a, b = cmplx.Abs(v), cmplx.Phase(v)*180/math.Pi
	case DB:
		a, b = 20*math.Log10(cmplx.Abs(v)), cmplx.Phase(v)*180/math.Pi
	default:
		a, b = real(v), imag(v)
	}
	w.WriteString(" ")
	w.WriteString(formatFloat(a))
	w.WriteString(" ")
	w.WriteString(formatFloat(b))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Read 读取 ports 端口的S参数数据
//
// 忽略 "!" 注释；二端口文件中频率不再递增之后的内容视为噪声参数并忽略。
func Read(r io.Reader, ports int) (*network.Block, error) {
	if ports < 1 {
		return nil, errs.New(errs.InvalidInput, "port count must be positive, got %d", ports)
	}
	// 缺省选项行等价于 "# GHZ S MA R 50"
	format, unit, z0 := MA, GHz, 50.0
	var values []float64
	sawOption := false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '!'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") {
			if sawOption {
				continue
			}
			sawOption = true
			var err error
			format, unit, z0, err = parseOption(text)
			if err != nil {
				return nil, errs.Wrap(errs.KindOf(err), err, "line %d", line)
			}
			continue
		}
		if strings.HasPrefix(text, "[") {
			return nil, errs.New(errs.InvalidInput, "line %d: touchstone v2 keywords are not supported", line)
		}
		for _, field := range strings.Fields(text) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errs.Wrap(errs.InvalidInput, err, "line %d: invalid number %q", line, field)
			}
			values = append(values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(errs.Io, err, "reading touchstone data")
	}

	scale, err := unit.Scale()
	if err != nil {
		return nil, err
	}
	record := 1 + 2*ports*ports
	b := &network.Block{Z0: z0}
	for pos := 0; pos+record <= len(values); pos += record {
		f := values[pos] * scale
		if n := len(b.Freqs); n > 0 && f <= b.Freqs[n-1] {
			break
		}
		s := maths.NewDenseMatrix[complex128](ports, ports)
		for idx := 0; idx < ports*ports; idx++ {
			v := pair(values[pos+1+2*idx], values[pos+2+2*idx], format)
			i, j := idx/ports, idx%ports
			if ports == 2 {
				i, j = j, i
			}
			s.Set(i, j, v)
		}
		b.Freqs = append(b.Freqs, f)
		b.S = append(b.S, s)
	}
	if len(b.Freqs) == 0 {
		return nil, errs.New(errs.InvalidInput, "no complete %d-port records found", ports)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func pair(a, b float64, format Format) complex128 {
	switch format {
	case MA:
		return cmplx.Rect(a, b*math.Pi/180)
	case DB:
		return cmplx.Rect(math.Pow(10, a/20), b*math.Pi/180)
	}
	return complex(a, b)
}

// parseOption 解析 "# <unit> <param> <format> R <z0>"，各项可缺省、顺序任意
func parseOption(text string) (Format, Unit, float64, error) {
	format, unit, z0 := MA, GHz, 50.0
	fields := strings.Fields(strings.ToUpper(strings.TrimPrefix(text, "#")))
	for i := 0; i < len(fields); i++ {
		switch f := fields[i]; f {
		case "HZ", "KHZ", "MHZ", "GHZ":
			unit = Unit(f)
		case "S":
		case "Y", "Z", "H", "G":
			return "", "", 0, errs.New(errs.InvalidInput, "only S parameters are supported, got %s", f)
		case "RI", "MA", "DB":
			format = Format(f)
		case "R":
			if i+1 >= len(fields) {
				return "", "", 0, errs.New(errs.InvalidInput, "option line has R without a value")
			}
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil || v <= 0 {
				return "", "", 0, errs.New(errs.InvalidInput, "invalid reference impedance %q", fields[i+1])
			}
			z0 = v
			i++
		default:
			return "", "", 0, errs.New(errs.InvalidInput, "unknown option %q", f)
		}
	}
	return format, unit, z0, nil
}

var extPattern = regexp.MustCompile(`(?i)\.s(\d+)p$`)

// PortsFromName 从 .sNp 扩展名得到端口数
func PortsFromName(name string) (int, error) {
	m := extPattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, errs.New(errs.InvalidInput, "%q does not have a .sNp extension", name)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, errs.New(errs.InvalidInput, "%q has an invalid port count", name)
	}
	return n, nil
}

// FileName 生成 <base>.s<N>p
func FileName(base string, ports int) string {
	return fmt.Sprintf("%s.s%dp", base, ports)
}

// ReadFile 读取文件，端口数由扩展名确定
func ReadFile(path string) (*network.Block, error) {
	ports, err := PortsFromName(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.Io, err, "opening %s", path)
	}
	defer f.Close()
	b, err := Read(f, ports)
	if err != nil {
		return nil, errs.Wrap(errs.KindOf(err), err, "reading %s", path)
	}
	return b, nil
}

// WriteFile 写出文件，扩展名须与端口数一致
func WriteFile(path string, b *network.Block, opts Options) error {
	ports, err := PortsFromName(path)
	if err != nil {
		return err
	}
	if ports != b.Ports() {
		return errs.New(errs.PortCountMismatch, "%s implies %d ports but block has %d", path, ports, b.Ports())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.Io, err, "creating directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.Io, err, "creating %s", path)
	}
	if err := Write(f, b, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errs.Wrap(errs.Io, err, "closing %s", path)
	}
	return nil
}

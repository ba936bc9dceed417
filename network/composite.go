package network

import (
	"github.com/1lj4s/HowToElementBuilder/internal/errs"
)

// Composite 有序的S参数块序列与端接表
//
//	Terminations 为空时只做级联
type Composite struct {
	Name         string
	Blocks       []*Block
	Terminations []Termination
}

// Reduce 先级联全部块，再按端接表化简
func (c *Composite) Reduce() (*Block, error) {
	if len(c.Blocks) == 0 {
		return nil, errs.New(errs.InvalidInput, "composite %q has no blocks", c.Name)
	}
	out, err := Cascade(c.Blocks...)
	if err != nil {
		return nil, errs.Wrap(errs.KindOf(err), err, "composite %q", c.Name)
	}
	if len(c.Terminations) == 0 {
		return out, nil
	}
	out, err = Terminate(out, c.Terminations)
	if err != nil {
		return nil, errs.Wrap(errs.KindOf(err), err, "composite %q", c.Name)
	}
	return out, nil
}

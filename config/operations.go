package config

import "fmt"

type Operations int

const (
	EntityCreate Operations = 1 << iota
	EntityRead
	EntityUpdate
	EntityDelete
)

const AllOperations = EntityCreate | EntityRead | EntityUpdate | EntityDelete

func Ops(ops ...string) (Operations, error) {
	var o Operations
	if err := o.Add(ops...); err != nil {
		return 0, err
	}
	return o, nil
}

func (o *Operations) Set(ops Operations) { *o |= ops }

func (o *Operations) Clear(ops Operations) { *o &= ^ops }

func (o Operations) IsSupported(ops Operations) bool { return o&ops != 0 }

func (o *Operations) Add(ops ...string) error {
	for _, op := range ops {
		switch op {
		case "EntityCreate":
			o.Set(EntityCreate)
		case "EntityRead":
			o.Set(EntityRead)
		case "EntityUpdate":
			o.Set(EntityUpdate)
		case "EntityDelete":
			o.Set(EntityDelete)
		default:
			return fmt.Errorf("invalid operation: %s", op)
		}
	}
	return nil
}

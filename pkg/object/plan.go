// Package object converts between finished buffers and owned Go values: Go
// structs described by `flat` struct tags, or dynamic maps described by a
// loaded schema. It only drives the public Builder and Table calls.
package object

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rawbytedev/flatwire/internal/common"
	"github.com/rawbytedev/flatwire/pkg/schema"
)

var (
	ErrNotStruct    = errors.New("object: expected struct")
	ErrNotStructPtr = errors.New("object: expected pointer to struct")
	ErrUnsupported  = errors.New("object: unsupported type")
	ErrMismatch     = errors.New("object: value does not match schema")
	ErrCycle        = errors.New("object: value refers back to itself")
)

// Plan maps the fields of a Go struct type onto a schema table.
type Plan struct {
	table  *schema.Table
	fields []fieldPlan
	order  []int
}

type fieldPlan struct {
	index []int
	field *schema.Field
	// sub is set for nested tables and vectors of tables.
	sub *Plan
	// ptr is set when the nested struct or vector element is a pointer.
	ptr bool
}

// Table returns the schema table derived from the struct.
func (p *Plan) Table() *schema.Table {
	return p.table
}

var (
	plansMu sync.RWMutex
	plans   = make(map[reflect.Type]*Plan)
)

// PlanOf returns the cached plan for struct type t, deriving it on first
// use.
func PlanOf(t reflect.Type) (*Plan, error) {
	plansMu.RLock()
	if p, ok := plans[t]; ok {
		plansMu.RUnlock()
		return p, nil
	}
	plansMu.RUnlock()

	plansMu.Lock()
	defer plansMu.Unlock()
	// Double-check
	if p, ok := plans[t]; ok {
		return p, nil
	}
	building := make(map[reflect.Type]*Plan)
	p, err := derive(t, building)
	if err != nil {
		return nil, err
	}
	for typ, bp := range building {
		plans[typ] = bp
	}
	return p, nil
}

// derive builds the plan for t. building holds plans under construction so
// self-referencing types resolve to the same plan.
func derive(t reflect.Type, building map[reflect.Type]*Plan) (*Plan, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, t)
	}
	if p, ok := plans[t]; ok {
		return p, nil
	}
	if p, ok := building[t]; ok {
		return p, nil
	}
	p := &Plan{table: &schema.Table{Name: t.Name()}}
	building[t] = p

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" && !sf.Anonymous {
			continue
		}
		tag, skip, err := parseTag(sf)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		fp := fieldPlan{index: sf.Index, field: tag}
		if err := classify(&fp, sf.Type, building); err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name(), sf.Name, err)
		}
		p.fields = append(p.fields, fp)
		p.table.Fields = append(p.table.Fields, fp.field)
	}
	if err := p.table.Normalize(); err != nil {
		return nil, fmt.Errorf("struct %s: %w", t, err)
	}
	p.order = packOrder(p.table.Fields)
	return p, nil
}

// parseTag reads `flat:"name,id=N,default=V,deprecated"`.
func parseTag(sf reflect.StructField) (*schema.Field, bool, error) {
	f := &schema.Field{Name: sf.Name}
	tag, ok := sf.Tag.Lookup("flat")
	if !ok {
		return f, false, nil
	}
	if tag == "-" {
		return nil, true, nil
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		f.Name = parts[0]
	}
	for _, opt := range parts[1:] {
		key, val, _ := strings.Cut(opt, "=")
		switch key {
		case "id":
			id, err := strconv.Atoi(val)
			if err != nil {
				return nil, false, fmt.Errorf("%w: field %s: bad id %q", ErrUnsupported, sf.Name, val)
			}
			f.ID = &id
		case "default":
			f.Default = val
		case "deprecated":
			f.Deprecated = true
		default:
			return nil, false, fmt.Errorf("%w: field %s: unknown tag option %q", ErrUnsupported, sf.Name, key)
		}
	}
	return f, false, nil
}

// classify fills in the wire type of fp from the Go type of the field.
func classify(fp *fieldPlan, t reflect.Type, building map[reflect.Type]*Plan) error {
	f := fp.field
	k := t.Kind()
	if common.IsFixedKind(k) || k == reflect.Int || k == reflect.Uint {
		f.Type = kindTypes[k]
		return nil
	}
	switch k {
	case reflect.String:
		f.Type = schema.TypeString
		return nil
	case reflect.Struct, reflect.Pointer:
		st := t
		if k == reflect.Pointer {
			st = t.Elem()
			fp.ptr = true
		}
		if st.Kind() != reflect.Struct {
			return fmt.Errorf("%w: %s", ErrUnsupported, t)
		}
		sub, err := derive(st, building)
		if err != nil {
			return err
		}
		f.Type, f.Table, fp.sub = schema.TypeTable, st.Name(), sub
		return nil
	case reflect.Slice:
		et := t.Elem()
		ek := et.Kind()
		switch {
		case ek == reflect.Uint8:
			f.Type = schema.TypeBytes
		case common.IsFixedKind(ek) || ek == reflect.Int || ek == reflect.Uint:
			f.Type, f.Elem = schema.TypeVector, kindTypes[ek]
		case ek == reflect.String:
			f.Type, f.Elem = schema.TypeVector, schema.TypeString
		case ek == reflect.Struct || (ek == reflect.Pointer && et.Elem().Kind() == reflect.Struct):
			st := et
			if ek == reflect.Pointer {
				st = et.Elem()
				fp.ptr = true
			}
			sub, err := derive(st, building)
			if err != nil {
				return err
			}
			f.Type, f.Elem, f.Table, fp.sub = schema.TypeVector, schema.TypeTable, st.Name(), sub
		default:
			return fmt.Errorf("%w: %s", ErrUnsupported, t)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupported, t)
}

// packOrder returns field indices with the widest inline values first so the
// table needs as little padding as possible. Ties keep declaration order.
func packOrder(fields []*schema.Field) []int {
	order := make([]int, len(fields))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fields[order[a]].Type.Size() > fields[order[b]].Type.Size()
	})
	return order
}

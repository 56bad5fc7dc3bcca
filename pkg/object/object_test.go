package object

import (
	"reflect"
	"sync"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/flatwire/pkg/flat"
	"github.com/rawbytedev/flatwire/pkg/schema"
)

type Status struct {
	Code    int16  `flat:"code"`
	Message string `flat:"message"`
	Detail  []byte `flat:"detail"`
}

type Range struct {
	StreamID int64    `flat:"stream_id,default=-1"`
	Index    int32    `flat:"index,default=-1"`
	Start    int64    `flat:"start"`
	End      int64    `flat:"end,default=-1"`
	Servers  []string `flat:"servers"`
}

type SealRangesResult struct {
	Status     *Status `flat:"status"`
	Ranges     []Range `flat:"ranges"`
	ThrottleMs uint32  `flat:"throttle_ms"`
	Healthy    bool    `flat:"healthy,default=true"`
	internal   int
}

func finish(t *testing.T, b *flat.Builder, root flat.UOffsetT) []byte {
	require.NoError(t, b.Finish(root))
	buf, err := b.FinishedBytes()
	require.NoError(t, err)
	return buf
}

func packBytes(t *testing.T, v any) []byte {
	b := flat.NewBuilder(0)
	root, err := Pack(b, v)
	require.NoError(t, err)
	return finish(t, b, root)
}

func TestStatusPackUnpack(t *testing.T) {
	in := Status{Code: 404, Message: "not found", Detail: []byte{0xDE, 0xAD}}
	buf := packBytes(t, &in)
	tab, err := flat.GetRoot(buf)
	require.NoError(t, err)

	var out Status
	require.NoError(t, Unpack(tab, &out))
	assert.Equal(t, in, out)

	// the mirror does not alias the buffer
	buf[len(buf)-1] ^= 0xFF
	assert.Equal(t, []byte{0xDE, 0xAD}, out.Detail)
}

func TestStatusDefaultCode(t *testing.T) {
	buf := packBytes(t, Status{Message: "not found", Detail: []byte{0xDE, 0xAD}})
	tab, err := flat.GetRoot(buf)
	require.NoError(t, err)
	off, err := tab.Offset(0)
	require.NoError(t, err)
	assert.Equal(t, flat.VOffsetT(0), off)

	out := Status{Code: 99}
	require.NoError(t, Unpack(tab, &out))
	assert.Equal(t, int16(0), out.Code)
}

func TestNestedRoundTrip(t *testing.T) {
	in := SealRangesResult{
		Status: &Status{Code: 200, Message: "ok"},
		Ranges: []Range{
			{StreamID: 1, Index: 0, Start: 0, End: 100, Servers: []string{"a:1", "b:2"}},
			{StreamID: 1, Index: 1, Start: 100, End: -1},
			{StreamID: -1, Index: -1, Servers: []string{}},
		},
		ThrottleMs: 25,
		Healthy:    false,
	}
	buf := packBytes(t, in)
	tab, err := flat.GetRoot(buf)
	require.NoError(t, err)
	var out SealRangesResult
	require.NoError(t, Unpack(tab, &out))
	if diff := cmp.Diff(in, out, cmp.AllowUnexported(SealRangesResult{})); diff != "" {
		t.Fatalf("unpack mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultsFromTags(t *testing.T) {
	buf := packBytes(t, SealRangesResult{Healthy: true})
	tab, err := flat.GetRoot(buf)
	require.NoError(t, err)
	vt, err := tab.Vtable()
	require.NoError(t, err)
	// every field equals its default, so nothing is stored
	assert.Equal(t, 0, vt.NumSlots())

	var out SealRangesResult
	require.NoError(t, Unpack(tab, &out))
	assert.True(t, out.Healthy)
	assert.Nil(t, out.Status)
	assert.Nil(t, out.Ranges)
}

type mixed struct {
	B    bool
	I8   int8
	U8   uint8
	I16  int16
	U16  uint16
	I32  int32
	U32  uint32
	I64  int64
	U64  uint64
	F32  float32
	F64  float64
	N    int
	S    string
	Raw  []byte
	Ints []int32
	Strs []string
	Fl   []float64
}

func TestMixedRoundTrip(t *testing.T) {
	condition := func(in mixed) bool {
		b := flat.NewBuilder(0)
		root, err := Pack(b, in)
		require.NoError(t, err)
		buf := finish(t, b, root)
		tab, err := flat.GetRoot(buf)
		require.NoError(t, err)
		var out mixed
		require.NoError(t, Unpack(tab, &out))
		return assert.ObjectsAreEqual(in, out)
	}
	if err := quick.Check(condition, &quick.Config{}); err != nil {
		t.Errorf("Error: %v", err)
	}
}

type node struct {
	Value int32 `flat:"value"`
	Next  *node `flat:"next"`
}

func TestSelfReferencingType(t *testing.T) {
	in := &node{Value: 1, Next: &node{Value: 2, Next: &node{Value: 3}}}
	buf := packBytes(t, in)
	tab, err := flat.GetRoot(buf)
	require.NoError(t, err)
	var out node
	require.NoError(t, Unpack(tab, &out))
	assert.Equal(t, *in, out)
}

type recordV1 struct {
	A int32  `flat:"a"`
	B string `flat:"b"`
}

type recordV2 struct {
	A int32    `flat:"a"`
	B string   `flat:"b"`
	C int64    `flat:"c,default=7"`
	D []string `flat:"d"`
}

func TestEvolvingStructs(t *testing.T) {
	buf := packBytes(t, recordV1{A: 5, B: "five"})
	tab, err := flat.GetRoot(buf)
	require.NoError(t, err)
	var newer recordV2
	require.NoError(t, Unpack(tab, &newer))
	assert.Equal(t, recordV2{A: 5, B: "five", C: 7}, newer)

	buf = packBytes(t, recordV2{A: 6, B: "six", C: 1, D: []string{"x"}})
	tab, err = flat.GetRoot(buf)
	require.NoError(t, err)
	var older recordV1
	require.NoError(t, Unpack(tab, &older))
	assert.Equal(t, recordV1{A: 6, B: "six"}, older)
}

type tagged struct {
	Keep  int32  `flat:"keep,id=0"`
	Old   string `flat:"old,id=1,deprecated"`
	Skip  string `flat:"-"`
	Later int16  `flat:"later,id=2"`
}

func TestTagsAndPlans(t *testing.T) {
	p, err := PlanOf(reflect.TypeOf(tagged{}))
	require.NoError(t, err)
	tab := p.Table()
	assert.Equal(t, "tagged", tab.Name)
	assert.Equal(t, 3, tab.NumSlots())
	_, ok := tab.Field("Skip")
	assert.False(t, ok)

	buf := packBytes(t, tagged{Keep: 1, Old: "gone", Skip: "x", Later: 2})
	root, err := flat.GetRoot(buf)
	require.NoError(t, err)
	has, err := root.Has(1)
	require.NoError(t, err)
	assert.False(t, has)
	var out tagged
	require.NoError(t, Unpack(root, &out))
	assert.Equal(t, tagged{Keep: 1, Later: 2}, out)
}

func TestPlanCacheConcurrent(t *testing.T) {
	typ := reflect.TypeOf(Range{})
	var wg sync.WaitGroup
	got := make([]*Plan, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := PlanOf(typ)
			assert.NoError(t, err)
			got[i] = p
		}(i)
	}
	wg.Wait()
	for _, p := range got {
		assert.Same(t, got[0], p)
	}
}

func TestPackErrors(t *testing.T) {
	b := flat.NewBuilder(0)
	_, err := Pack(b, 5)
	assert.ErrorIs(t, err, ErrNotStruct)
	_, err = Pack(b, (*Status)(nil))
	assert.ErrorIs(t, err, ErrNotStruct)

	type withMap struct{ M map[string]int }
	_, err = Pack(b, withMap{})
	assert.ErrorIs(t, err, ErrUnsupported)

	type badTag struct {
		A int32 `flat:"a,size=3"`
	}
	_, err = Pack(b, badTag{})
	assert.ErrorIs(t, err, ErrUnsupported)

	loop := &node{Value: 1}
	loop.Next = loop
	_, err = Pack(flat.NewBuilder(0), loop)
	assert.ErrorIs(t, err, ErrCycle)

	ring := &node{Value: 1, Next: &node{Value: 2}}
	ring.Next.Next = ring
	_, err = Pack(flat.NewBuilder(0), *ring)
	assert.ErrorIs(t, err, ErrCycle)

	type list struct {
		Items []*node `flat:"items"`
	}
	_, err = Pack(flat.NewBuilder(0), list{Items: []*node{loop}})
	assert.ErrorIs(t, err, ErrCycle)

	shared := &node{Value: 7}
	type pair struct {
		A *node `flat:"a"`
		B *node `flat:"b"`
	}
	_, err = Pack(flat.NewBuilder(0), pair{A: shared, B: shared})
	assert.NoError(t, err, "a value reached twice without a loop is not a cycle")

	var s Status
	assert.ErrorIs(t, Unpack(flat.Table{}, s), ErrNotStructPtr)
	assert.ErrorIs(t, Unpack(flat.Table{}, (*Status)(nil)), ErrNotStructPtr)
}

func loadStatusSchema(t *testing.T) *schema.Schema {
	s, err := schema.LoadFile("../schema/testdata/status.yaml")
	require.NoError(t, err)
	return s
}

func TestPackMapMatchesStruct(t *testing.T) {
	s := loadStatusSchema(t)
	b := flat.NewBuilder(0)
	root, err := PackMap(b, s, "Status", map[string]any{
		"code":    404,
		"message": "not found",
		"detail":  []any{0xDE, 0xAD},
	})
	require.NoError(t, err)
	dynamic := finish(t, b, root)

	typed := packBytes(t, Status{Code: 404, Message: "not found", Detail: []byte{0xDE, 0xAD}})
	assert.Equal(t, typed, dynamic)

	tab, err := flat.GetRoot(dynamic)
	require.NoError(t, err)
	m, err := UnpackMap(s, "Status", tab)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"code":    int16(404),
		"message": "not found",
		"detail":  []byte{0xDE, 0xAD},
	}, m)
}

func TestPackMapNested(t *testing.T) {
	s, err := schema.LoadFile("../schema/testdata/ranges.yaml")
	require.NoError(t, err)
	in := map[string]any{
		"status": map[string]any{"code": 200, "message": "ok"},
		"ranges": []any{
			map[string]any{"stream_id": 3, "start": 10, "end": 20, "servers": []any{"s1"}},
		},
		"throttle_ms": 5,
	}
	b := flat.NewBuilder(0)
	root, err := PackMap(b, s, "SealRangesResult", in)
	require.NoError(t, err)
	buf := finish(t, b, root)

	tab, err := flat.GetRoot(buf)
	require.NoError(t, err)
	out, err := UnpackMap(s, "SealRangesResult", tab)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), out["throttle_ms"])
	assert.Equal(t, true, out["healthy"])
	status := out["status"].(map[string]any)
	assert.Equal(t, int16(200), status["code"])
	_, hasDetail := status["detail"]
	assert.False(t, hasDetail)
	ranges := out["ranges"].([]any)
	require.Len(t, ranges, 1)
	r := ranges[0].(map[string]any)
	assert.Equal(t, int64(3), r["stream_id"])
	assert.Equal(t, int32(-1), r["index"])
	assert.Equal(t, []any{"s1"}, r["servers"])
}

func TestPackMapErrors(t *testing.T) {
	s := loadStatusSchema(t)
	cases := map[string]map[string]any{
		"unknown key":   {"nope": 1},
		"overflow":      {"code": 1 << 20},
		"fraction":      {"code": 1.5},
		"wrong string":  {"message": 12},
		"wrong vector":  {"detail": 12},
		"byte overflow": {"detail": []any{256}},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := PackMap(flat.NewBuilder(0), s, "Status", m)
			assert.ErrorIs(t, err, ErrMismatch)
		})
	}
	_, err := PackMap(flat.NewBuilder(0), s, "Missing", nil)
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestToScalar(t *testing.T) {
	x, err := toScalar(schema.TypeUint16, 65535)
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), x)
	x, err = toScalar(schema.TypeFloat32, 2)
	require.NoError(t, err)
	assert.Equal(t, float32(2), x)
	x, err = toScalar(schema.TypeInt8, 3.0)
	require.NoError(t, err)
	assert.Equal(t, int8(3), x)
	_, err = toScalar(schema.TypeUint8, -1)
	assert.ErrorIs(t, err, ErrMismatch)
	_, err = toScalar(schema.TypeBool, 1)
	assert.ErrorIs(t, err, ErrMismatch)
}

func BenchmarkPackStatus(b *testing.B) {
	in := Status{Code: 404, Message: "not found", Detail: []byte{0xDE, 0xAD}}
	bl := flat.NewBuilder(0)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		bl.Reset()
		root, err := Pack(bl, &in)
		if err != nil {
			b.Fatal(err)
		}
		if err := bl.Finish(root); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnpackStatus(b *testing.B) {
	bl := flat.NewBuilder(0)
	root, _ := Pack(bl, Status{Code: 404, Message: "not found", Detail: []byte{0xDE, 0xAD}})
	_ = bl.Finish(root)
	buf, _ := bl.FinishedBytes()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tab, _ := flat.GetRoot(buf)
		var out Status
		if err := Unpack(tab, &out); err != nil {
			b.Fatal(err)
		}
	}
}

package flatwire

import (
	"sync"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/flatwire/pkg/flat"
)

type MixedStruct struct {
	Val      string
	Mod      int8
	Data     string
	Integers int16
	Float3   float32
	Float6   float64
}

func FuzzEncodeDecode(f *testing.F) {
	f.Add("a", int8(1), "b", int16(2), float32(3), float64(4))
	f.Fuzz(fuzzMixedTypes)
}

func fuzzMixedTypes(t *testing.T, Val string, Mod int8, Data string, Integers int16, Float3 float32, Float6 float64) {
	if Float3 != Float3 || Float6 != Float6 {
		t.Skip("NaN never compares equal")
	}
	val := MixedStruct{Val: Val, Mod: Mod, Data: Data, Integers: Integers, Float3: Float3, Float6: Float6}
	res := &MixedStruct{}
	f := New(Options{})
	data, err := f.Encode(val)
	require.NoError(t, err)
	err = f.Decode(data, res)
	require.NoError(t, err)
	require.EqualExportedValues(t, val, *res)
}

func TestEncodeSimpleTypes(t *testing.T) {
	type NewStruct struct {
		Val      []string
		Mod      int8
		Data     string
		Integers int16
		Float3   float32
		Float6   float64
	}
	z := NewStruct{Val: []string{"azerty", "Loling"}, Data: "testing",
		Mod: int8(17), Integers: int16(12),
		Float3: float32(12.3), Float6: float64(1236.2)}
	res := &NewStruct{}
	f := New(Options{})
	data, err := f.Encode(z)
	require.NoError(t, err)
	err = f.Decode(data, res)
	require.NoError(t, err)
	require.EqualExportedValues(t, z, *res)
}

func TestConstant(t *testing.T) {
	type NewStructint struct {
		Int1  uint8
		Int2  int8
		Int3  uint16
		Int4  int16
		Int5  uint32
		Int6  int32
		Int7  uint64
		Int9  int64
		Const bool
	}
	f := New(Options{})
	condition := func(z NewStructint) bool {
		data, err := f.Encode(z)
		require.NoError(t, err)
		res := &NewStructint{}
		err = f.Decode(data, res)
		require.NoError(t, err)
		return assert.ObjectsAreEqual(z, *res)
	}
	err := quick.Check(condition, &quick.Config{})
	if err != nil {
		t.Errorf("Error: %v", err)
	}
}

func TestConstantList(t *testing.T) {
	type NewStructint struct {
		Int1  []uint8
		Int2  int8
		Int3  []uint16
		Int4  []int16
		Int5  []uint32
		Int6  []int32
		Int7  []uint64
		Int9  []int64
		Const []bool
	}
	f := New(Options{})
	condition := func(z NewStructint) bool {
		data, err := f.Encode(z)
		require.NoError(t, err)
		res := &NewStructint{}
		err = f.Decode(data, res)
		require.NoError(t, err)
		return assert.ObjectsAreEqual(z, *res)
	}
	err := quick.Check(condition, &quick.Config{})
	require.NoError(t, err)
}

func TestStructPointer(t *testing.T) {
	type StructPtr struct {
		Data string
	}
	val := &StructPtr{Data: "Hello"}
	res := &StructPtr{}
	f := New(Options{})
	data, err := f.Encode(val)
	require.NoError(t, err)
	err = f.Decode(data, res)
	require.NoError(t, err)
	require.EqualExportedValues(t, val, res)
}

func TestErrors(t *testing.T) {
	f := New(Options{})
	data, err := f.Encode("abc")
	require.Len(t, data, 0)
	require.ErrorIs(t, err, ErrNotStruct)
	type Eas struct {
		val string // private
	}
	str := Eas{val: "hello"}
	Ptrstr := &Eas{val: "world"}
	data, err = f.Encode(Ptrstr)
	require.Nil(t, err)
	err = f.Decode(data, str) // needs pointer
	require.ErrorIs(t, err, ErrNotStructPtr)

	type Chan struct{ C chan int }
	_, err = f.Encode(Chan{})
	require.ErrorIs(t, err, ErrUnsupported)

	err = f.Decode([]byte{1, 2}, &Eas{})
	require.ErrorIs(t, err, flat.ErrMalformedBuffer)
}

func TestEncodeListOfTypes(t *testing.T) {
	type NewStruct struct {
		Val      []string
		Mod      []int8
		Integers []int16
		Float3   []float32
		Float6   []float64
	}
	f := New(Options{})
	condition := func(z NewStruct) bool {
		data, err := f.Encode(z)
		require.NoError(t, err)
		res := &NewStruct{}
		err = f.Decode(data, res)
		require.NoError(t, err)
		return assert.ObjectsAreEqual(z, *res)
	}
	err := quick.Check(condition, &quick.Config{})
	if err != nil {
		t.Errorf("Error: %v", err)
	}
}

func TestOptions(t *testing.T) {
	type Status struct {
		Code    int16  `flat:"code"`
		Message string `flat:"message"`
		Detail  []byte `flat:"detail"`
	}
	in := Status{Code: 404, Message: "not found", Detail: []byte{0xDE, 0xAD}}
	cases := []Options{
		{},
		{FileIdentifier: "STAT"},
		{SizePrefixed: true},
		{SizePrefixed: true, FileIdentifier: "STAT"},
		{ForceDefaults: true, InitialSize: 1},
	}
	for _, opts := range cases {
		f := New(opts)
		data, err := f.Encode(in)
		require.NoError(t, err)
		var out Status
		require.NoError(t, f.Decode(data, &out), "%+v", opts)
		assert.Equal(t, in, out)
	}

	tagged := New(Options{FileIdentifier: "STAT"})
	plain, err := Marshal(in)
	require.NoError(t, err)
	var out Status
	assert.ErrorIs(t, tagged.Decode(plain, &out), ErrIdentifier)
	require.NoError(t, Unmarshal(plain, &out))
	assert.Equal(t, in, out)
}

func TestBuildByHand(t *testing.T) {
	f := New(Options{FileIdentifier: "HAND"})
	data, err := f.Build(func(b *flat.Builder) (flat.UOffsetT, error) {
		if err := b.StartTable(1); err != nil {
			return 0, err
		}
		b.AddInt32(0, 42, 0)
		return b.EndTable()
	})
	require.NoError(t, err)
	tab, err := f.Root(data)
	require.NoError(t, err)
	x, err := tab.GetInt32Slot(0, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(42), x)
}

func TestAppendEncodeReusesDst(t *testing.T) {
	type Small struct{ A int32 }
	f := New(Options{})
	first, err := f.Encode(Small{A: 1})
	require.NoError(t, err)
	both, err := f.AppendEncode(first, Small{A: 2})
	require.NoError(t, err)
	assert.Len(t, both, 2*len(first))
	var out Small
	require.NoError(t, f.Decode(both[len(first):], &out))
	assert.Equal(t, int32(2), out.A)
}

func TestConcurrentEncode(t *testing.T) {
	type Item struct {
		ID   int64
		Name string
	}
	f := New(Options{})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				in := Item{ID: int64(g*1000 + i), Name: "item"}
				data, err := f.Encode(in)
				if !assert.NoError(t, err) {
					return
				}
				var out Item
				if assert.NoError(t, f.Decode(data, &out)) {
					assert.Equal(t, in, out)
				}
			}
		}(g)
	}
	wg.Wait()
}

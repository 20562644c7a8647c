package testing

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/ValentinKolb/mkv/lib/path"
	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/provider"
)

// RunProviderTests runs the conformance test suite for a provider implementation
func RunProviderTests(t *testing.T, name string, factory provider.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, open(t, factory))
		})

		t.Run("Paths", func(t *testing.T) {
			testPaths(t, open(t, factory))
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, open(t, factory))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, open(t, factory))
		})

		t.Run("Ensure", func(t *testing.T) {
			testEnsure(t, open(t, factory))
		})

		t.Run("Inc&Dec", func(t *testing.T) {
			testIncDec(t, open(t, factory))
		})

		t.Run("Math", func(t *testing.T) {
			testMath(t, open(t, factory))
		})

		t.Run("Push", func(t *testing.T) {
			testPush(t, open(t, factory))
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, open(t, factory))
		})

		t.Run("Update", func(t *testing.T) {
			testUpdate(t, open(t, factory))
		})

		t.Run("Queries", func(t *testing.T) {
			testQueries(t, open(t, factory))
		})

		t.Run("Map&Each", func(t *testing.T) {
			testMapEach(t, open(t, factory))
		})

		t.Run("Random", func(t *testing.T) {
			testRandom(t, open(t, factory))
		})

		t.Run("Bulk", func(t *testing.T) {
			testBulk(t, open(t, factory))
		})

		t.Run("InsertionOrder", func(t *testing.T) {
			testInsertionOrder(t, open(t, factory))
		})

		t.Run("AutoKey", func(t *testing.T) {
			testAutoKey(t, open(t, factory))
		})

		t.Run("ErrorsAreNotSticky", func(t *testing.T) {
			testErrorsAreNotSticky(t, open(t, factory))
		})

		t.Run("ConcurrentIncrements", func(t *testing.T) {
			testConcurrentIncrements(t, open(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

var ctx = context.Background()

// open creates and initializes a provider that is closed when the test ends
func open(t testing.TB, factory provider.Factory) provider.Provider {
	t.Helper()
	prov := factory()
	if err := prov.Init(ctx, "conformance"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() {
		if err := prov.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return prov
}

// noError fails the test if the payload carries an error
func noError(t testing.TB, p payload.Payload) {
	t.Helper()
	if err := p.Meta().Error; err != nil {
		t.Fatalf("Expected %s to succeed, got %v", p.Meta().Method, err)
	}
}

// wantKind fails the test unless the payload carries an error of the given kind
func wantKind(t testing.TB, p payload.Payload, kind payload.ErrorKind) {
	t.Helper()
	err := p.Meta().Error
	if err == nil {
		t.Errorf("Expected %s to fail with %s, got no error", p.Meta().Method, kind)
		return
	}
	if err.Kind != kind {
		t.Errorf("Expected %s to fail with %s, got %v", p.Meta().Method, kind, err)
	}
}

func set(t testing.TB, prov provider.Provider, key string, value any) {
	t.Helper()
	noError(t, prov.Set(ctx, payload.NewSet(key, nil, value)))
}

func get(t testing.TB, prov provider.Provider, keyPath string) (any, bool) {
	t.Helper()
	key, p := path.ParseKeyPath(keyPath)
	res := prov.Get(ctx, payload.NewGet(key, p))
	noError(t, res)
	return res.Data, res.Loaded
}

func sorted(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, prov provider.Provider) {
	set(t, prov, "str", "value")
	set(t, prov, "num", 42)
	set(t, prov, "obj", map[string]any{"a": 1, "b": []any{"x"}})
	set(t, prov, "null", nil)

	if v, ok := get(t, prov, "str"); !ok || v != "value" {
		t.Errorf("Expected value, got %v (%v)", v, ok)
	}
	if v, _ := get(t, prov, "num"); v != 42.0 {
		t.Errorf("Expected integers to be stored as numbers, got %#v", v)
	}
	want := map[string]any{"a": 1.0, "b": []any{"x"}}
	if v, _ := get(t, prov, "obj"); !reflect.DeepEqual(v, want) {
		t.Errorf("Expected %v, got %v", want, v)
	}
	if v, ok := get(t, prov, "null"); !ok || v != nil {
		t.Errorf("Expected stored null to be loaded, got %v (%v)", v, ok)
	}
	if _, ok := get(t, prov, "missing"); ok {
		t.Error("Expected missing key to not be loaded")
	}

	// overwrite
	set(t, prov, "str", "other")
	if v, _ := get(t, prov, "str"); v != "other" {
		t.Errorf("Expected other after overwrite, got %v", v)
	}

	// returned values must not alias stored data
	v, _ := get(t, prov, "obj")
	v.(map[string]any)["a"] = "mutated"
	if v, _ := get(t, prov, "obj.a"); v != 1.0 {
		t.Errorf("Mutating a returned value changed stored data: %v", v)
	}

	// values the caller keeps must not alias stored data either
	in := map[string]any{"k": "v"}
	set(t, prov, "alias", in)
	in["k"] = "changed"
	if v, _ := get(t, prov, "alias.k"); v != "v" {
		t.Errorf("Mutating a stored input changed stored data: %v", v)
	}

	// values outside the value model are rejected
	wantKind(t, prov.Set(ctx, payload.NewSet("bad", nil, make(chan int))), payload.KindInvalidValueType)
	if _, ok := get(t, prov, "bad"); ok {
		t.Error("Rejected value should not be stored")
	}
}

func testPaths(t *testing.T, prov provider.Provider) {
	noError(t, prov.Set(ctx, payload.NewSet("user", path.Resolve("profile.name"), "ada")))
	noError(t, prov.Set(ctx, payload.NewSet("user", path.Resolve("profile.langs"), []any{"go"})))
	noError(t, prov.Set(ctx, payload.NewSet("user", path.Resolve("profile.langs[2]"), "c")))

	if v, _ := get(t, prov, "user.profile.name"); v != "ada" {
		t.Errorf("Expected ada, got %v", v)
	}
	if v, _ := get(t, prov, "user.profile.langs"); !reflect.DeepEqual(v, []any{"go", nil, "c"}) {
		t.Errorf("Expected array extended with null, got %v", v)
	}
	if _, ok := get(t, prov, "user.profile.missing"); ok {
		t.Error("Expected missing path to not be loaded")
	}

	// a scalar intermediate is replaced
	set(t, prov, "scalar", 5)
	noError(t, prov.Set(ctx, payload.NewSet("scalar", path.Resolve("a.b"), true)))
	if v, _ := get(t, prov, "scalar"); !reflect.DeepEqual(v, map[string]any{"a": map[string]any{"b": true}}) {
		t.Errorf("Expected scalar to be replaced by a container, got %v", v)
	}

	// set then get at the same path returns the set value
	for i, p := range []string{"x", "x.y", "x.y.z", "l[0]", "deep.list[1].name"} {
		noError(t, prov.Set(ctx, payload.NewSet(fmt.Sprintf("k%d", i), path.Resolve(p), i)))
		if v, ok := get(t, prov, fmt.Sprintf("k%d.%s", i, p)); !ok || v != float64(i) {
			t.Errorf("Get after Set at %s: expected %d, got %v (%v)", p, i, v, ok)
		}
	}
}

func testHas(t *testing.T, prov provider.Provider) {
	set(t, prov, "a", map[string]any{"b": nil})

	tests := []struct {
		key  string
		path string
		want bool
	}{
		{"a", "", true},
		{"a", "b", true},
		{"a", "c", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		res := prov.Has(ctx, payload.NewHas(tt.key, path.Resolve(tt.path)))
		noError(t, res)
		if res.Data != tt.want {
			t.Errorf("Has(%s, %s): expected %v, got %v", tt.key, tt.path, tt.want, res.Data)
		}
	}
}

func testDelete(t *testing.T, prov provider.Provider) {
	set(t, prov, "a", map[string]any{"b": 1, "c": 2})
	set(t, prov, "d", "x")

	res := prov.Delete(ctx, payload.NewDelete("a", path.Resolve("b")))
	noError(t, res)
	if !res.Data {
		t.Error("Expected path delete to report removal")
	}
	if v, _ := get(t, prov, "a"); !reflect.DeepEqual(v, map[string]any{"c": 2.0}) {
		t.Errorf("Expected only a.c to remain, got %v", v)
	}

	noError(t, prov.Delete(ctx, payload.NewDelete("d", nil)))
	if _, ok := get(t, prov, "d"); ok {
		t.Error("Expected d to be deleted")
	}

	// deleting something absent is a no-op
	res = prov.Delete(ctx, payload.NewDelete("missing", nil))
	noError(t, res)
	if res.Data {
		t.Error("Deleting a missing key should not report removal")
	}
	noError(t, prov.Delete(ctx, payload.NewDelete("a", path.Resolve("x.y"))))
}

func testEnsure(t *testing.T, prov provider.Provider) {
	res := prov.Ensure(ctx, payload.NewEnsure("list", []any{}))
	noError(t, res)
	if !reflect.DeepEqual(res.Data, []any{}) {
		t.Errorf("Expected default to be returned, got %v", res.Data)
	}

	set(t, prov, "list", []any{"x"})
	res = prov.Ensure(ctx, payload.NewEnsure("list", []any{}))
	noError(t, res)
	if !reflect.DeepEqual(res.Data, []any{"x"}) {
		t.Errorf("Expected existing value to be kept, got %v", res.Data)
	}
}

func testIncDec(t *testing.T, prov provider.Provider) {
	set(t, prov, "n", 1)

	inc := prov.Inc(ctx, payload.NewInc("n", nil))
	noError(t, inc)
	if inc.Data != 2 {
		t.Errorf("Expected 2 after inc, got %v", inc.Data)
	}

	dec := prov.Dec(ctx, payload.NewDec("n", nil))
	noError(t, dec)
	dec = prov.Dec(ctx, payload.NewDec("n", nil))
	noError(t, dec)
	if v, _ := get(t, prov, "n"); v != 0.0 || dec.Data != 0 {
		t.Errorf("Expected 0 after two decs, got %v", v)
	}

	noError(t, prov.Set(ctx, payload.NewSet("stats", path.Resolve("hits"), 10)))
	noError(t, prov.Inc(ctx, payload.NewInc("stats", path.Resolve("hits"))))
	if v, _ := get(t, prov, "stats.hits"); v != 11.0 {
		t.Errorf("Expected 11 at path, got %v", v)
	}

	wantKind(t, prov.Inc(ctx, payload.NewInc("missing", nil)), payload.KindMissingData)
	wantKind(t, prov.Dec(ctx, payload.NewDec("stats", path.Resolve("misses"))), payload.KindMissingData)

	set(t, prov, "s", "text")
	wantKind(t, prov.Inc(ctx, payload.NewInc("s", nil)), payload.KindInvalidDataType)
	if v, _ := get(t, prov, "s"); v != "text" {
		t.Errorf("Failed inc must not change data, got %v", v)
	}
}

func testMath(t *testing.T, prov provider.Provider) {
	tests := []struct {
		op      payload.MathOperator
		start   float64
		operand float64
		want    float64
	}{
		{payload.OpAdd, 1, 2, 3},
		{payload.OpSubtract, 1, 2, -1},
		{payload.OpMultiply, 3, 4, 12},
		{payload.OpDivide, 9, 3, 3},
		{payload.OpRemainder, 7, 3, 1},
		{payload.OpExponent, 2, 10, 1024},
	}
	for _, tt := range tests {
		set(t, prov, "n", tt.start)
		res := prov.Math(ctx, payload.NewMath("n", nil, tt.op, tt.operand))
		noError(t, res)
		if res.Data != tt.want {
			t.Errorf("%v %s %v: expected %v, got %v", tt.start, tt.op, tt.operand, tt.want, res.Data)
		}
		if v, _ := get(t, prov, "n"); v != tt.want {
			t.Errorf("%v %s %v: expected stored %v, got %v", tt.start, tt.op, tt.operand, tt.want, v)
		}
	}

	set(t, prov, "n", 1)
	wantKind(t, prov.Math(ctx, payload.NewMath("n", nil, payload.OpDivide, 0)), payload.KindInvalidValueType)
	wantKind(t, prov.Math(ctx, payload.NewMath("n", nil, payload.OpRemainder, 0)), payload.KindInvalidValueType)
	wantKind(t, prov.Math(ctx, payload.NewMath("n", nil, "root", 2)), payload.KindInvalidValueType)
	wantKind(t, prov.Math(ctx, payload.NewMath("missing", nil, payload.OpAdd, 1)), payload.KindMissingData)

	set(t, prov, "s", "x")
	wantKind(t, prov.Math(ctx, payload.NewMath("s", nil, payload.OpAdd, 1)), payload.KindInvalidDataType)
}

func testPush(t *testing.T, prov provider.Provider) {
	set(t, prov, "list", []any{"a"})

	res := prov.Push(ctx, payload.NewPush("list", nil, "b", false))
	noError(t, res)
	if !reflect.DeepEqual(res.Data, []any{"a", "b"}) {
		t.Errorf("Expected [a b], got %v", res.Data)
	}

	// primitives are not duplicated unless allowed
	noError(t, prov.Push(ctx, payload.NewPush("list", nil, "a", false)))
	if v, _ := get(t, prov, "list"); !reflect.DeepEqual(v, []any{"a", "b"}) {
		t.Errorf("Expected duplicate to be skipped, got %v", v)
	}
	noError(t, prov.Push(ctx, payload.NewPush("list", nil, "a", true)))
	if v, _ := get(t, prov, "list"); !reflect.DeepEqual(v, []any{"a", "b", "a"}) {
		t.Errorf("Expected duplicate to be pushed, got %v", v)
	}

	// containers are always appended
	set(t, prov, "objs", []any{})
	noError(t, prov.Push(ctx, payload.NewPush("objs", nil, map[string]any{"x": 1}, false)))
	noError(t, prov.Push(ctx, payload.NewPush("objs", nil, map[string]any{"x": 1}, false)))
	if v, _ := get(t, prov, "objs"); len(v.([]any)) != 2 {
		t.Errorf("Expected both objects to be pushed, got %v", v)
	}

	// nested array
	noError(t, prov.Set(ctx, payload.NewSet("user", path.Resolve("tags"), []any{})))
	noError(t, prov.Push(ctx, payload.NewPush("user", path.Resolve("tags"), "admin", false)))
	if v, _ := get(t, prov, "user.tags"); !reflect.DeepEqual(v, []any{"admin"}) {
		t.Errorf("Expected [admin] at path, got %v", v)
	}

	wantKind(t, prov.Push(ctx, payload.NewPush("missing", nil, 1, false)), payload.KindMissingData)
	wantKind(t, prov.Push(ctx, payload.NewPush("user", path.Resolve("nope"), 1, false)), payload.KindMissingData)
	set(t, prov, "str", "x")
	wantKind(t, prov.Push(ctx, payload.NewPush("str", nil, 1, false)), payload.KindInvalidDataType)
}

func testRemove(t *testing.T, prov provider.Provider) {
	set(t, prov, "list", []any{1, 2, 1, "1", 3})

	res := prov.Remove(ctx, payload.NewRemove("list", nil, payload.MatchValue(1)))
	noError(t, res)
	if !reflect.DeepEqual(res.Data, []any{2.0, "1", 3.0}) {
		t.Errorf("Expected all strict matches removed, got %v", res.Data)
	}

	even := payload.MatchFunc(func(v any, _ string) bool {
		f, ok := v.(float64)
		return ok && int(f)%2 == 0
	})
	noError(t, prov.Remove(ctx, payload.NewRemove("list", nil, even)))
	if v, _ := get(t, prov, "list"); !reflect.DeepEqual(v, []any{"1", 3.0}) {
		t.Errorf("Expected predicate matches removed, got %v", v)
	}

	// literal matcher scoped to a path inside the elements
	set(t, prov, "users", []any{map[string]any{"id": 1}, map[string]any{"id": 2}})
	noError(t, prov.Remove(ctx, payload.NewRemove("users", nil, payload.MatchValue(2).At(path.Resolve("id")))))
	if v, _ := get(t, prov, "users"); !reflect.DeepEqual(v, []any{map[string]any{"id": 1.0}}) {
		t.Errorf("Expected user 2 removed, got %v", v)
	}

	wantKind(t, prov.Remove(ctx, payload.NewRemove("list", nil, payload.MatchValue([]any{1}))), payload.KindInvalidValueType)
	wantKind(t, prov.Remove(ctx, payload.NewRemove("missing", nil, payload.MatchValue(1))), payload.KindMissingData)
	set(t, prov, "str", "x")
	wantKind(t, prov.Remove(ctx, payload.NewRemove("str", nil, payload.MatchValue(1))), payload.KindInvalidDataType)
}

func testUpdate(t *testing.T, prov provider.Provider) {
	set(t, prov, "n", 1)
	double := func(cur any) any {
		f, _ := cur.(float64)
		return f * 2
	}

	res := prov.Update(ctx, payload.NewUpdate("n", nil, double))
	noError(t, res)
	if res.Data != 2.0 {
		t.Errorf("Expected 2, got %v", res.Data)
	}

	var seen any = "unset"
	res = prov.Update(ctx, payload.NewUpdate("fresh", path.Resolve("a"), func(cur any) any {
		seen = cur
		return "created"
	}))
	noError(t, res)
	if seen != nil {
		t.Errorf("Expected hook to receive nil for an absent value, got %v", seen)
	}
	if v, _ := get(t, prov, "fresh.a"); v != "created" {
		t.Errorf("Expected created, got %v", v)
	}

	wantKind(t, prov.Update(ctx, payload.NewUpdate("n", nil, nil)), payload.KindMissingValue)
}

func testQueries(t *testing.T, prov provider.Provider) {
	adult := payload.MatchFunc(func(v any, _ string) bool {
		age, _ := v.(float64)
		return age >= 18
	}).At(path.Resolve("age"))

	// every on an empty collection is false
	res := prov.Every(ctx, payload.NewEvery(adult))
	noError(t, res)
	if res.Data {
		t.Error("Expected every on an empty collection to be false")
	}

	set(t, prov, "ann", map[string]any{"age": 30, "role": "admin"})
	set(t, prov, "bob", map[string]any{"age": 12, "role": "user"})
	set(t, prov, "cat", map[string]any{"age": 45, "role": "user"})

	if res := prov.Every(ctx, payload.NewEvery(adult)); res.Data {
		t.Error("Expected not every user to be an adult")
	}
	someRes := prov.Some(ctx, payload.NewSome(payload.MatchValue("admin").At(path.Resolve("role"))))
	noError(t, someRes)
	if !someRes.Data {
		t.Error("Expected some user to be an admin")
	}
	if res := prov.Some(ctx, payload.NewSome(payload.MatchValue("root").At(path.Resolve("role")))); res.Data {
		t.Error("Expected no user to be root")
	}

	filter := prov.Filter(ctx, payload.NewFilter(adult))
	noError(t, filter)
	keys := make([]string, 0, len(filter.Data))
	for k := range filter.Data {
		keys = append(keys, k)
	}
	if !reflect.DeepEqual(sorted(keys), []string{"ann", "cat"}) {
		t.Errorf("Expected ann and cat, got %v", keys)
	}

	find := prov.Find(ctx, payload.NewFind(payload.MatchValue("user").At(path.Resolve("role"))))
	noError(t, find)
	if find.Data == nil || find.Data.Key != "bob" {
		t.Errorf("Expected first user in insertion order to be bob, got %v", find.Data)
	}
	if res := prov.Find(ctx, payload.NewFind(payload.MatchValue("root"))); res.Data != nil {
		t.Errorf("Expected no match, got %v", res.Data)
	}

	part := prov.Partition(ctx, payload.NewPartition(adult))
	noError(t, part)
	if len(part.Data.Truthy) != 2 || len(part.Data.Falsy) != 1 || part.Data.Falsy["bob"] == nil {
		t.Errorf("Unexpected partition: %+v", part.Data)
	}

	wantKind(t, prov.Filter(ctx, payload.NewFilter(payload.MatchValue(map[string]any{}))), payload.KindInvalidValueType)
}

func testMapEach(t *testing.T, prov provider.Provider) {
	set(t, prov, "a", map[string]any{"n": 1})
	set(t, prov, "b", map[string]any{"n": 2})
	set(t, prov, "c", map[string]any{"m": 3})

	byPath := prov.Map(ctx, payload.NewMap(nil, path.Resolve("n")))
	noError(t, byPath)
	if !reflect.DeepEqual(byPath.Data, []any{1.0, 2.0, nil}) {
		t.Errorf("Expected [1 2 null], got %v", byPath.Data)
	}

	byHook := prov.Map(ctx, payload.NewMap(func(_ any, key string) any { return key + "!" }, nil))
	noError(t, byHook)
	if !reflect.DeepEqual(byHook.Data, []any{"a!", "b!", "c!"}) {
		t.Errorf("Expected keys in insertion order, got %v", byHook.Data)
	}

	var visited []string
	noError(t, prov.Each(ctx, payload.NewEach(func(_ any, key string) {
		visited = append(visited, key)
	})))
	if !reflect.DeepEqual(visited, []string{"a", "b", "c"}) {
		t.Errorf("Expected each to visit a b c, got %v", visited)
	}
}

func testRandom(t *testing.T, prov provider.Provider) {
	wantKind(t, prov.Random(ctx, payload.NewRandom(1, false)), payload.KindInvalidCount)

	for i := 0; i < 5; i++ {
		set(t, prov, fmt.Sprintf("k%d", i), i)
	}

	values := prov.Random(ctx, payload.NewRandom(5, false))
	noError(t, values)
	seen := map[float64]bool{}
	for _, v := range values.Data {
		seen[v.(float64)] = true
	}
	if len(values.Data) != 5 || len(seen) != 5 {
		t.Errorf("Expected 5 distinct values, got %v", values.Data)
	}

	keys := prov.RandomKey(ctx, payload.NewRandomKey(3, false))
	noError(t, keys)
	uniq := map[string]bool{}
	for _, k := range keys.Data {
		uniq[k] = true
	}
	if len(keys.Data) != 3 || len(uniq) != 3 {
		t.Errorf("Expected 3 distinct keys, got %v", keys.Data)
	}

	dup := prov.RandomKey(ctx, payload.NewRandomKey(20, true))
	noError(t, dup)
	if len(dup.Data) != 20 {
		t.Errorf("Expected 20 keys with duplicates, got %d", len(dup.Data))
	}

	wantKind(t, prov.Random(ctx, payload.NewRandom(6, false)), payload.KindInvalidCount)
	wantKind(t, prov.RandomKey(ctx, payload.NewRandomKey(-1, true)), payload.KindInvalidCount)

	zero := prov.Random(ctx, payload.NewRandom(0, false))
	noError(t, zero)
	if len(zero.Data) != 0 {
		t.Errorf("Expected no values for count 0, got %v", zero.Data)
	}
}

func testBulk(t *testing.T, prov provider.Provider) {
	set(t, prov, "existing", "old")

	sm := prov.SetMany(ctx, payload.NewSetMany([]payload.SetEntry{
		{Key: "existing", Value: "new"},
		{Key: "a", Value: 1},
		{Key: "b", Path: path.Resolve("x"), Value: 2},
	}, false))
	noError(t, sm)
	if sm.Data != 2 {
		t.Errorf("Expected 2 entries written, got %d", sm.Data)
	}
	if v, _ := get(t, prov, "existing"); v != "old" {
		t.Errorf("Expected existing key to be skipped without overwrite, got %v", v)
	}

	noError(t, prov.SetMany(ctx, payload.NewSetMany([]payload.SetEntry{{Key: "existing", Value: "new"}}, true)))
	if v, _ := get(t, prov, "existing"); v != "new" {
		t.Errorf("Expected overwrite, got %v", v)
	}

	gm := prov.GetMany(ctx, payload.NewGetMany([]string{"a", "b", "missing"}))
	noError(t, gm)
	want := map[string]any{"a": 1.0, "b": map[string]any{"x": 2.0}}
	if !reflect.DeepEqual(gm.Data, want) {
		t.Errorf("Expected %v, got %v", want, gm.Data)
	}

	size := prov.Size(ctx, payload.NewSize())
	noError(t, size)
	if size.Data != 3 {
		t.Errorf("Expected size 3, got %d", size.Data)
	}

	all := prov.GetAll(ctx, payload.NewGetAll())
	noError(t, all)
	if len(all.Data) != 3 || all.Data["existing"] != "new" {
		t.Errorf("Unexpected getAll result: %v", all.Data)
	}

	values := prov.Values(ctx, payload.NewValues())
	noError(t, values)
	if len(values.Data) != 3 || values.Data[0] != "new" {
		t.Errorf("Unexpected values: %v", values.Data)
	}

	dm := prov.DeleteMany(ctx, payload.NewDeleteMany([]string{"a", "missing"}))
	noError(t, dm)
	if dm.Data != 1 {
		t.Errorf("Expected 1 entry removed, got %d", dm.Data)
	}

	noError(t, prov.Clear(ctx, payload.NewClear()))
	if size := prov.Size(ctx, payload.NewSize()); size.Data != 0 {
		t.Errorf("Expected empty provider after clear, got %d", size.Data)
	}
	if keys := prov.Keys(ctx, payload.NewKeys()); len(keys.Data) != 0 {
		t.Errorf("Expected no keys after clear, got %v", keys.Data)
	}
}

func testInsertionOrder(t *testing.T, prov provider.Provider) {
	for _, k := range []string{"c", "a", "b"} {
		set(t, prov, k, k)
	}
	set(t, prov, "c", "updated")

	keys := prov.Keys(ctx, payload.NewKeys())
	noError(t, keys)
	if !reflect.DeepEqual(keys.Data, []string{"c", "a", "b"}) {
		t.Errorf("Expected overwrite to keep order, got %v", keys.Data)
	}

	noError(t, prov.Delete(ctx, payload.NewDelete("c", nil)))
	set(t, prov, "c", "again")
	keys = prov.Keys(ctx, payload.NewKeys())
	if !reflect.DeepEqual(keys.Data, []string{"a", "b", "c"}) {
		t.Errorf("Expected re-inserted key at the end, got %v", keys.Data)
	}
}

func testAutoKey(t *testing.T, prov provider.Provider) {
	var last string
	for i := 1; i <= 3; i++ {
		res := prov.AutoKey(ctx, payload.NewAutoKey())
		noError(t, res)
		if res.Data != fmt.Sprint(i) {
			t.Errorf("Expected autoKey %d, got %s", i, res.Data)
		}
		last = res.Data
	}

	// other operations do not affect the counter
	set(t, prov, last, "x")
	noError(t, prov.Delete(ctx, payload.NewDelete(last, nil)))
	if res := prov.AutoKey(ctx, payload.NewAutoKey()); res.Data != "4" {
		t.Errorf("Expected autoKey 4, got %s", res.Data)
	}

	noError(t, prov.Clear(ctx, payload.NewClear()))
	if res := prov.AutoKey(ctx, payload.NewAutoKey()); res.Data != "1" {
		t.Errorf("Expected autoKey to restart at 1 after clear, got %s", res.Data)
	}
}

func testErrorsAreNotSticky(t *testing.T, prov provider.Provider) {
	wantKind(t, prov.Inc(ctx, payload.NewInc("missing", nil)), payload.KindMissingData)
	set(t, prov, "n", 1)
	noError(t, prov.Inc(ctx, payload.NewInc("n", nil)))
}

func testConcurrentIncrements(t *testing.T, prov provider.Provider) {
	set(t, prov, "counter", 0)

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if res := prov.Inc(ctx, payload.NewInc("counter", nil)); res.Error != nil {
					t.Errorf("Concurrent inc failed: %v", res.Error)
					return
				}
			}
		}()
	}
	wg.Wait()

	if v, _ := get(t, prov, "counter"); v != float64(workers*perWorker) {
		t.Errorf("Expected %d after concurrent increments, got %v", workers*perWorker, v)
	}
}

package client

import (
	"context"
	"errors"
	"testing"

	"github.com/ValentinKolb/mkv/lib/path"
	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/store"
	"github.com/ValentinKolb/mkv/rpc/common"
	"github.com/ValentinKolb/mkv/rpc/serializer"
	"github.com/ValentinKolb/mkv/rpc/server"
	"github.com/ValentinKolb/mkv/rpc/transport"
)

var ctx = context.Background()

// loopbackTransport calls the handler of an in-process server
type loopbackTransport struct {
	handler transport.ServerHandleFunc
	err     error
	sent    int
}

func (l *loopbackTransport) RegisterHandler(h transport.ServerHandleFunc) { l.handler = h }
func (l *loopbackTransport) Listen(common.ServerConfig) error              { return nil }
func (l *loopbackTransport) Connect(common.ClientConfig) error             { return nil }
func (l *loopbackTransport) Close() error                                  { return nil }

func (l *loopbackTransport) Send(collection string, req []byte) ([]byte, error) {
	l.sent++
	if l.err != nil {
		return nil, l.err
	}
	return l.handler(collection, req), nil
}

func newTestProvider(t *testing.T, collection string) (*Provider, *loopbackTransport) {
	t.Helper()

	tr := &loopbackTransport{}
	srv := server.NewRPCServer(common.ServerConfig{
		Collections: []common.CollectionConfig{{Name: "users", Provider: common.ProviderMemory}},
	}, tr, serializer.NewBinarySerializer())
	if err := srv.Init(ctx); err != nil {
		t.Fatalf("Failed to init server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	prov, err := NewRPCProvider(collection, common.ClientConfig{}, tr, serializer.NewBinarySerializer())
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return prov, tr
}

func TestProviderRoundTrip(t *testing.T) {
	prov, _ := newTestProvider(t, "users")
	if err := prov.Init(ctx, "users"); err != nil {
		t.Fatalf("Failed to init provider: %v", err)
	}

	set := prov.Set(ctx, payload.NewSet("ada", nil, map[string]any{"name": "Ada", "age": 36}))
	if set.Error != nil {
		t.Fatalf("Expected no error, got %v", set.Error)
	}

	get := prov.Get(ctx, payload.NewGet("ada", path.Resolve("name")))
	if get.Error != nil || !get.Loaded || get.Data != "Ada" {
		t.Errorf("Expected Ada, got %v (loaded=%v, err=%v)", get.Data, get.Loaded, get.Error)
	}

	inc := prov.Inc(ctx, payload.NewInc("ada", path.Resolve("age")))
	if inc.Error != nil || inc.Data != 37 {
		t.Errorf("Expected 37, got %v (%v)", inc.Data, inc.Error)
	}

	push := prov.Push(ctx, payload.NewPush("ada", path.Resolve("tags"), "admin", false))
	if push.Error == nil || push.Error.Kind != payload.KindMissingData {
		t.Errorf("Expected MissingData for push to a missing array, got %v", push.Error)
	}

	size := prov.Size(ctx, payload.NewSize())
	if size.Error != nil || size.Data != 1 {
		t.Errorf("Expected size 1, got %d (%v)", size.Data, size.Error)
	}

	keys := prov.Keys(ctx, payload.NewKeys())
	if keys.Error != nil || len(keys.Data) != 1 || keys.Data[0] != "ada" {
		t.Errorf("Expected [ada], got %v (%v)", keys.Data, keys.Error)
	}
}

func TestProviderMatcherByValue(t *testing.T) {
	prov, _ := newTestProvider(t, "users")

	prov.Set(ctx, payload.NewSet("a", nil, map[string]any{"role": "admin"}))
	prov.Set(ctx, payload.NewSet("b", nil, map[string]any{"role": "user"}))

	find := prov.Find(ctx, payload.NewFind(payload.MatchValue("user").At(path.Resolve("role"))))
	if find.Error != nil || find.Data == nil || find.Data.Key != "b" {
		t.Errorf("Expected entry b, got %+v (%v)", find.Data, find.Error)
	}
}

func TestProviderRejectsHooks(t *testing.T) {
	prov, tr := newTestProvider(t, "users")

	res := prov.Update(ctx, payload.NewUpdate("ada", nil, func(cur any) any { return cur }))
	if res.Error == nil || res.Error.Kind != payload.KindInvalidValueType {
		t.Errorf("Expected InvalidValueType, got %v", res.Error)
	}
	if tr.sent != 0 {
		t.Errorf("Expected no request to be sent, got %d", tr.sent)
	}
}

func TestProviderUnknownCollection(t *testing.T) {
	prov, _ := newTestProvider(t, "missing")

	err := prov.Init(ctx, "missing")
	if !payload.IsKind(err, KindRPCError) {
		t.Errorf("Expected RPCError, got %v", err)
	}
}

func TestProviderTransportError(t *testing.T) {
	prov, tr := newTestProvider(t, "users")
	tr.err = errors.New("connection refused")

	res := prov.Get(ctx, payload.NewGet("ada", nil))
	if res.Error == nil || res.Error.Kind != KindRPCError {
		t.Errorf("Expected RPCError, got %v", res.Error)
	}
}

func TestProviderCanceledContext(t *testing.T) {
	prov, tr := newTestProvider(t, "users")

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	res := prov.Size(canceled, payload.NewSize())
	if res.Error == nil || res.Error.Kind != payload.KindInternalError {
		t.Errorf("Expected InternalError, got %v", res.Error)
	}
	if tr.sent != 0 {
		t.Errorf("Expected no request to be sent, got %d", tr.sent)
	}
}

func TestProviderBehindStore(t *testing.T) {
	prov, _ := newTestProvider(t, "users")

	st, err := store.New(ctx, store.Options{Name: "users", Provider: prov})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	if err := st.Set(ctx, "ada.name", "Ada"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	name, loaded, err := st.Get(ctx, "ada.name")
	if err != nil || !loaded || name != "Ada" {
		t.Errorf("Expected Ada, got %v (loaded=%v, err=%v)", name, loaded, err)
	}

	if _, err := st.Inc(ctx, "ada.name"); !errors.Is(err, payload.ErrInvalidDataType) {
		t.Errorf("Expected InvalidDataType, got %v", err)
	}

	key, err := st.AutoKey(ctx)
	if err != nil || key != "1" {
		t.Errorf("Expected autoKey 1, got %q (%v)", key, err)
	}
}

func TestProviderExportImport(t *testing.T) {
	prov, _ := newTestProvider(t, "users")

	st, err := store.New(ctx, store.Options{Name: "users", Provider: prov})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	for _, key := range []string{"b", "a", "c"} {
		if err := st.Set(ctx, key, key+"!"); err != nil {
			t.Fatalf("Failed to set %s: %v", key, err)
		}
	}

	doc, err := st.Export(ctx)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(doc.Entries) != 3 || doc.Entries[0].Key != "b" || doc.Entries[2].Value != "c!" {
		t.Errorf("Unexpected export entries %+v", doc.Entries)
	}

	n, err := st.Import(ctx, doc, true)
	if err != nil || n != 3 {
		t.Errorf("Expected 3 imported entries, got %d (%v)", n, err)
	}
}

package store

import (
	"context"

	"github.com/ValentinKolb/mkv/lib/path"
	"github.com/ValentinKolb/mkv/lib/payload"
)

// --------------------------------------------------------------------------
// Point operations
// --------------------------------------------------------------------------

// Get returns the value at keyPath. loaded is false if nothing is stored there.
func (s *Store) Get(ctx context.Context, keyPath string) (value any, loaded bool, err error) {
	key, p := path.ParseKeyPath(keyPath)
	res, err := run(ctx, s, payload.NewGet(key, p))
	return res.Data, res.Loaded, err
}

// Set stores value at keyPath
func (s *Store) Set(ctx context.Context, keyPath string, value any) error {
	key, p := path.ParseKeyPath(keyPath)
	_, err := run(ctx, s, payload.NewSet(key, p, value))
	return err
}

// Has reports whether a value is stored at keyPath
func (s *Store) Has(ctx context.Context, keyPath string) (bool, error) {
	key, p := path.ParseKeyPath(keyPath)
	res, err := run(ctx, s, payload.NewHas(key, p))
	return res.Data, err
}

// Delete removes the value at keyPath and reports whether something was removed
func (s *Store) Delete(ctx context.Context, keyPath string) (bool, error) {
	key, p := path.ParseKeyPath(keyPath)
	res, err := run(ctx, s, payload.NewDelete(key, p))
	return res.Data, err
}

// Ensure returns the entry key, storing defaultValue first if it does not exist
func (s *Store) Ensure(ctx context.Context, key string, defaultValue any) (any, error) {
	res, err := run(ctx, s, payload.NewEnsure(key, defaultValue))
	return res.Data, err
}

// Inc increments the number at keyPath and returns the new value
func (s *Store) Inc(ctx context.Context, keyPath string) (float64, error) {
	key, p := path.ParseKeyPath(keyPath)
	res, err := run(ctx, s, payload.NewInc(key, p))
	return res.Data, err
}

// Dec decrements the number at keyPath and returns the new value
func (s *Store) Dec(ctx context.Context, keyPath string) (float64, error) {
	key, p := path.ParseKeyPath(keyPath)
	res, err := run(ctx, s, payload.NewDec(key, p))
	return res.Data, err
}

// Math applies op with operand to the number at keyPath and returns the new value
func (s *Store) Math(ctx context.Context, keyPath string, op payload.MathOperator, operand float64) (float64, error) {
	key, p := path.ParseKeyPath(keyPath)
	res, err := run(ctx, s, payload.NewMath(key, p, op, operand))
	return res.Data, err
}

// Push appends value to the array at keyPath and returns the array
func (s *Store) Push(ctx context.Context, keyPath string, value any, allowDuplicates bool) ([]any, error) {
	key, p := path.ParseKeyPath(keyPath)
	res, err := run(ctx, s, payload.NewPush(key, p, value, allowDuplicates))
	return res.Data, err
}

// Remove removes all matching elements from the array at keyPath and returns the array
func (s *Store) Remove(ctx context.Context, keyPath string, m payload.Matcher) ([]any, error) {
	key, p := path.ParseKeyPath(keyPath)
	res, err := run(ctx, s, payload.NewRemove(key, p, m))
	return res.Data, err
}

// Update replaces the value at keyPath with the result of hook and returns it
func (s *Store) Update(ctx context.Context, keyPath string, hook payload.UpdateFunc) (any, error) {
	key, p := path.ParseKeyPath(keyPath)
	res, err := run(ctx, s, payload.NewUpdate(key, p, hook))
	return res.Data, err
}

// --------------------------------------------------------------------------
// Collection queries
// --------------------------------------------------------------------------

func (s *Store) Every(ctx context.Context, m payload.Matcher) (bool, error) {
	res, err := run(ctx, s, payload.NewEvery(m))
	return res.Data, err
}

func (s *Store) Some(ctx context.Context, m payload.Matcher) (bool, error) {
	res, err := run(ctx, s, payload.NewSome(m))
	return res.Data, err
}

func (s *Store) Filter(ctx context.Context, m payload.Matcher) (map[string]any, error) {
	res, err := run(ctx, s, payload.NewFilter(m))
	return res.Data, err
}

// Find returns the first matching entry in insertion order, nil if none matches
func (s *Store) Find(ctx context.Context, m payload.Matcher) (*payload.Entry, error) {
	res, err := run(ctx, s, payload.NewFind(m))
	return res.Data, err
}

func (s *Store) Partition(ctx context.Context, m payload.Matcher) (payload.Partition, error) {
	res, err := run(ctx, s, payload.NewPartition(m))
	return res.Data, err
}

// Map returns hook(value, key) for every entry
func (s *Store) Map(ctx context.Context, hook payload.MapFunc) ([]any, error) {
	res, err := run(ctx, s, payload.NewMap(hook, nil))
	return res.Data, err
}

// Pluck returns the value at the path p of every entry, nil where it is absent
func (s *Store) Pluck(ctx context.Context, p string) ([]any, error) {
	res, err := run(ctx, s, payload.NewMap(nil, path.Resolve(p)))
	return res.Data, err
}

// Each calls hook for every entry in insertion order
func (s *Store) Each(ctx context.Context, hook payload.EachFunc) error {
	_, err := run(ctx, s, payload.NewEach(hook))
	return err
}

func (s *Store) Random(ctx context.Context, count int, duplicates bool) ([]any, error) {
	res, err := run(ctx, s, payload.NewRandom(count, duplicates))
	return res.Data, err
}

func (s *Store) RandomKey(ctx context.Context, count int, duplicates bool) ([]string, error) {
	res, err := run(ctx, s, payload.NewRandomKey(count, duplicates))
	return res.Data, err
}

// --------------------------------------------------------------------------
// Bulk operations
// --------------------------------------------------------------------------

// GetMany returns the values of all existing keys
func (s *Store) GetMany(ctx context.Context, keys ...string) (map[string]any, error) {
	res, err := run(ctx, s, payload.NewGetMany(keys))
	return res.Data, err
}

// SetMany writes all entries and returns the number of written entries.
// Without overwrite, existing keys are skipped.
func (s *Store) SetMany(ctx context.Context, entries []payload.SetEntry, overwrite bool) (int, error) {
	res, err := run(ctx, s, payload.NewSetMany(entries, overwrite))
	return res.Data, err
}

// DeleteMany removes all keys and returns the number of removed entries
func (s *Store) DeleteMany(ctx context.Context, keys ...string) (int, error) {
	res, err := run(ctx, s, payload.NewDeleteMany(keys))
	return res.Data, err
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	res, err := run(ctx, s, payload.NewKeys())
	return res.Data, err
}

func (s *Store) Values(ctx context.Context) ([]any, error) {
	res, err := run(ctx, s, payload.NewValues())
	return res.Data, err
}

func (s *Store) GetAll(ctx context.Context) (map[string]any, error) {
	res, err := run(ctx, s, payload.NewGetAll())
	return res.Data, err
}

func (s *Store) Size(ctx context.Context) (int, error) {
	res, err := run(ctx, s, payload.NewSize())
	return res.Data, err
}

// Clear removes all entries and resets the autoKey counter
func (s *Store) Clear(ctx context.Context) error {
	_, err := run(ctx, s, payload.NewClear())
	return err
}

// AutoKey returns a new key that was never returned before (until the next Clear)
func (s *Store) AutoKey(ctx context.Context) (string, error) {
	res, err := run(ctx, s, payload.NewAutoKey())
	return res.Data, err
}

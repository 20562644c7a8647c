package kv

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ValentinKolb/mkv/lib/export"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key.path]",
		Short: "Gets the value of a key or of a path inside it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, loaded, err := rpcStore.Get(ctx(cmd), args[0])
			if err != nil {
				return err
			}
			if !loaded {
				fmt.Println("key not found")
				return nil
			}
			return printJSON(value)
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key.path] [value]",
		Short: "Sets the value of a key or of a path inside it (value is parsed as JSON, otherwise used as string)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Set(ctx(cmd), args[0], parseValue(args[1])); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key.path]",
		Short: "Checks if a key or a path inside it exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := rpcStore.Has(ctx(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Println(ok)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key.path]",
		Short: "Deletes a key or a path inside it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := rpcStore.Delete(ctx(cmd), args[0])
			if err != nil {
				return err
			}
			if deleted {
				fmt.Println("deleted successfully")
			} else {
				fmt.Println("key not found")
			}
			return nil
		},
	}
	incCmd = &cobra.Command{
		Use:   "inc [key.path]",
		Short: "Increments the number at a key or path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rpcStore.Inc(ctx(cmd), args[0])
			if err != nil {
				return err
			}
			return printJSON(n)
		},
	}
	decCmd = &cobra.Command{
		Use:   "dec [key.path]",
		Short: "Decrements the number at a key or path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rpcStore.Dec(ctx(cmd), args[0])
			if err != nil {
				return err
			}
			return printJSON(n)
		},
	}
	pushCmd = &cobra.Command{
		Use:   "push [key.path] [value]",
		Short: "Appends a value to the array at a key or path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			allowDuplicates, _ := cmd.Flags().GetBool("allow-duplicates")
			arr, err := rpcStore.Push(ctx(cmd), args[0], parseValue(args[1]), allowDuplicates)
			if err != nil {
				return err
			}
			return printJSON(arr)
		},
	}
	ensureCmd = &cobra.Command{
		Use:   "ensure [key] [default]",
		Short: "Returns the value of a key, storing the default first if the key does not exist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := rpcStore.Ensure(ctx(cmd), args[0], parseValue(args[1]))
			if err != nil {
				return err
			}
			return printJSON(value)
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Lists all keys in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, _ := cmd.Flags().GetString("match")
			if pattern != "" && !doublestar.ValidatePattern(pattern) {
				return fmt.Errorf("invalid pattern %q", pattern)
			}

			keys, err := rpcStore.Keys(ctx(cmd))
			if err != nil {
				return err
			}
			for _, key := range keys {
				if pattern != "" {
					if ok, _ := doublestar.Match(pattern, key); !ok {
						continue
					}
				}
				fmt.Println(key)
			}
			return nil
		},
	}
	valuesCmd = &cobra.Command{
		Use:   "values",
		Short: "Lists all values in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := rpcStore.Values(ctx(cmd))
			if err != nil {
				return err
			}
			return printJSON(values)
		},
	}
	sizeCmd = &cobra.Command{
		Use:   "size",
		Short: "Prints the number of entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rpcStore.Size(ctx(cmd))
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Removes all entries and resets the auto key counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Clear(ctx(cmd)); err != nil {
				return err
			}
			fmt.Println("cleared successfully")
			return nil
		},
	}
	randomCmd = &cobra.Command{
		Use:   "random [count]",
		Short: "Prints random values of the collection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("count must be a number: %w", err)
				}
				count = n
			}
			duplicates, _ := cmd.Flags().GetBool("duplicates")

			values, err := rpcStore.Random(ctx(cmd), count, duplicates)
			if err != nil {
				return err
			}
			return printJSON(values)
		},
	}
	exportCmd = &cobra.Command{
		Use:   "export [file]",
		Short: "Exports all entries as JSON document (to stdout if no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := rpcStore.Export(ctx(cmd))
			if err != nil {
				return err
			}
			data, err := export.Encode(doc)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return err
			}
			fmt.Printf("exported %d entries to %s\n", len(doc.Entries), args[0])
			return nil
		},
	}
	importCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Imports an export document (from stdin if no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if len(args) == 0 {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			doc, err := export.Parse(data)
			if err != nil {
				return err
			}
			replace, _ := cmd.Flags().GetBool("replace")

			n, err := rpcStore.Import(ctx(cmd), doc, replace)
			if err != nil {
				return err
			}
			fmt.Printf("imported %d entries\n", n)
			return nil
		},
	}
)

func init() {
	pushCmd.Flags().Bool("allow-duplicates", true, "Append the value even if the array already contains it")
	keysCmd.Flags().String("match", "", "Only print keys matching the glob pattern (e.g. 'user:*')")
	randomCmd.Flags().Bool("duplicates", false, "Allow the same entry to be drawn more than once")
	importCmd.Flags().Bool("replace", false, "Clear the collection before importing")
}

// parseValue decodes a command line value as JSON and falls back to the plain string
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// printJSON prints a value as JSON
func printJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

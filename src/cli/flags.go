package cli

import "fmt"

// A KeyValue is a repeatable `KEY=VALUE` flag argument, used for
// -m/--manually_generated and --remap, mirroring please's ByteSize/
// Duration/URL custom flag.Unmarshaler types in shape.
type KeyValue struct {
	Key   string
	Value string
}

// UnmarshalFlag implements the flags.Unmarshaler interface.
func (kv *KeyValue) UnmarshalFlag(in string) error {
	for i := 0; i < len(in); i++ {
		if in[i] == '=' {
			kv.Key = in[:i]
			kv.Value = in[i+1:]
			if kv.Key == "" {
				return fmt.Errorf("invalid KEY=VALUE argument %q: empty key", in)
			}
			return nil
		}
	}
	return fmt.Errorf("invalid KEY=VALUE argument %q: missing '='", in)
}

// ToMap collapses a slice of KeyValue flags into a map, last one wins for
// a repeated key.
func ToMap(kvs []KeyValue) map[string]string {
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

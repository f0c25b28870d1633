package cacheprovider

import (
	"reflect"
	"sort"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// NamespaceOption is the option key applied through cachecore.Namespacer.
const NamespaceOption = "namespace"

// Params are the named constructor parameters of one cache.
type Params map[string]any

// Namespace returns the configured namespace, or "" when absent. Scalar
// values are decoded like any other option, so a YAML `namespace: 2024`
// yields "2024".
func (p Params) Namespace() (string, error) {
	v, ok := p[NamespaceOption]
	if !ok || v == nil {
		return "", nil
	}
	var out struct {
		Namespace string `option:"namespace"`
	}
	if err := (Params{NamespaceOption: v}).Bind(&out); err != nil {
		return "", err
	}
	return out.Namespace, nil
}

// Bind decodes p into out, a pointer to a struct whose fields carry an
// `option:"name"` tag. Fields without a matching key keep their current value,
// so callers pre-fill out with defaults. Keys without a matching field are
// ignored. Values are decoded weakly: "30m" becomes a time.Duration, "a,b" a
// []string and "1" an int. A bare number bound to a time.Duration counts
// seconds.
//
// Each name in required must be present and non-empty, otherwise Bind returns
// an *InvalidArgumentError for it.
// @group Options
//
// Example:
//
//	var cfg struct {
//		Directory string        `option:"directory"`
//		TTL       time.Duration `option:"default_ttl"`
//	}
//	cfg.TTL = 5 * time.Minute
//	params := cacheprovider.Params{"directory": "/tmp/cache", "default_ttl": "1m"}
//	if err := params.Bind(&cfg, "directory"); err != nil {
//		panic(err)
//	}
//	fmt.Println(cfg.Directory, cfg.TTL) // /tmp/cache 1m0s
func (p Params) Bind(out any, required ...string) error {
	for _, name := range required {
		if isEmptyOption(p[name]) {
			return missingOption(name)
		}
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// One key at a time so a decode failure names its option.
	for _, key := range keys {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "option",
			WeaklyTypedInput: true,
			Result:           out,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				numberToSecondsHookFunc(),
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		})
		if err != nil {
			return err
		}
		if err := dec.Decode(map[string]any{key: p[key]}); err != nil {
			return &InvalidArgumentError{Option: key, Reason: "cannot decode value", Err: err}
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// numberToSecondsHookFunc reads untyped numbers as seconds when the target is
// a time.Duration. time.Duration values pass through unchanged.
func numberToSecondsHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != durationType || from == durationType {
			return data, nil
		}
		v := reflect.ValueOf(data)
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return time.Duration(v.Int()) * time.Second, nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return time.Duration(v.Uint()) * time.Second, nil
		case reflect.Float32, reflect.Float64:
			return time.Duration(v.Float() * float64(time.Second)), nil
		}
		return data, nil
	}
}

func isEmptyOption(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	}
	return false
}

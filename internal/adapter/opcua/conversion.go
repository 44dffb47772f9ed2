package opcua

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/savushkin-dev/scada-gateway/internal/domain"
)

// Normalize converts a raw protocol value into the portable tagged union.
// Unsigned integers widen to int64 so a uint32 of 4294967295 survives
// without truncation, matching how the value is declared on the wire.
// A nil raw value becomes the explicit "no value", never a zero.
func Normalize(raw interface{}) domain.Value {
	switch v := raw.(type) {
	case nil:
		return domain.NoValue()
	case bool:
		return domain.BoolValue(v)
	case int:
		return domain.IntValue(int64(v))
	case int8:
		return domain.IntValue(int64(v))
	case int16:
		return domain.IntValue(int64(v))
	case int32:
		return domain.IntValue(int64(v))
	case int64:
		return domain.IntValue(v)
	case uint:
		return uintValue(uint64(v))
	case uint8:
		return domain.IntValue(int64(v))
	case uint16:
		return domain.IntValue(int64(v))
	case uint32:
		return domain.IntValue(int64(v))
	case uint64:
		return uintValue(v)
	case float32:
		return domain.FloatValue(float64(v))
	case float64:
		return domain.FloatValue(v)
	case string:
		return domain.StringValue(v)
	case time.Time:
		return domain.StringValue(v.Format(time.RFC3339Nano))
	default:
		// Exotic variant payloads (extension objects, arrays) are kept
		// observable rather than dropped.
		return domain.StringValue(fmt.Sprintf("%v", v))
	}
}

// uintValue widens an unsigned value. Values that fit int64 stay integers;
// anything larger is carried as its decimal string instead of wrapping to a
// negative.
func uintValue(v uint64) domain.Value {
	if v > math.MaxInt64 {
		return domain.StringValue(strconv.FormatUint(v, 10))
	}
	return domain.IntValue(int64(v))
}

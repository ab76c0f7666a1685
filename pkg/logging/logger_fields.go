package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Component names the subsystem emitting the entry (circuit, api, scheduler...).
func Component(name string) Field {
	return String("component", name)
}

// ComponentID identifies a circuit component such as "light-1718000000000".
func ComponentID(id string) Field {
	return String("component_id", id)
}

func ComponentType(t string) Field {
	return String("component_type", t)
}

func ConnectionID(id string) Field {
	return String("connection_id", id)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

// Changes is the number of state changes a recomputation reported.
func Changes(n int) Field {
	return Int("changes", n)
}

func Topic(name string) Field {
	return String("topic", name)
}

func RequestID(id string) Field {
	return String("request_id", id)
}

func Path(p string) Field {
	return String("path", p)
}

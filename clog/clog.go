/*
Package clog provides Context with logging information.
*/
package clog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// unique type to prevent assignment.
type clogContextKeyT struct{}

var clogContextKey = clogContextKeyT{}

const (
	// standard keys
	round     = "round"
	ticketID  = "ticketID"
	ruleID    = "ruleID"
	drawIndex = "drawIndex"
	requestID = "requestID"
)

// Verbose is a boolean type that implements Infof (like Printf) etc.
// See the documentation of V for more information.
type Verbose bool

var stdKeys map[string]bool
var stdKeysOrder = []string{round, ticketID, ruleID, drawIndex, requestID}

func init() {
	stdKeys = make(map[string]bool)
	for _, key := range stdKeysOrder {
		stdKeys[key] = true
	}
}

func V(level glog.Level) Verbose {
	return Verbose(bool(glog.V(level)))
}

type values struct {
	mu   sync.RWMutex
	vals map[string]string
	// non standard keys in insertion order
	order []string
}

func newValues() *values {
	return &values{
		vals: make(map[string]string),
	}
}

func (v *values) set(key, val string) {
	if _, ok := v.vals[key]; !ok && !stdKeys[key] {
		v.order = append(v.order, key)
	}
	v.vals[key] = val
}

// Clone creates new context with parentCtx as parent and
// logging details from logCtx
func Clone(parentCtx, logCtx context.Context) context.Context {
	cmap, _ := logCtx.Value(clogContextKey).(*values)
	newCmap := newValues()
	if cmap != nil {
		cmap.mu.RLock()
		for k, v := range cmap.vals {
			newCmap.vals[k] = v
		}
		newCmap.order = append(newCmap.order, cmap.order...)
		cmap.mu.RUnlock()
	}
	return context.WithValue(parentCtx, clogContextKey, newCmap)
}

func AddRound(ctx context.Context, val uint64) context.Context {
	return AddVal(ctx, round, strconv.FormatUint(val, 10))
}

func AddTicketID(ctx context.Context, val uint64) context.Context {
	return AddVal(ctx, ticketID, strconv.FormatUint(val, 10))
}

func AddRuleID(ctx context.Context, val uint64) context.Context {
	return AddVal(ctx, ruleID, strconv.FormatUint(val, 10))
}

func AddDrawIndex(ctx context.Context, val uint64) context.Context {
	return AddVal(ctx, drawIndex, strconv.FormatUint(val, 10))
}

func AddRequestID(ctx context.Context, val string) context.Context {
	return AddVal(ctx, requestID, val)
}

func AddVal(ctx context.Context, key, val string) context.Context {
	cmap, _ := ctx.Value(clogContextKey).(*values)
	if cmap == nil {
		cmap = newValues()
		ctx = context.WithValue(ctx, clogContextKey, cmap)
	}
	cmap.mu.Lock()
	cmap.set(key, val)
	cmap.mu.Unlock()
	return ctx
}

// GetVal returns the value stored under key, empty if absent
func GetVal(ctx context.Context, key string) string {
	cmap, _ := ctx.Value(clogContextKey).(*values)
	if cmap == nil {
		return ""
	}
	cmap.mu.RLock()
	defer cmap.mu.RUnlock()
	return cmap.vals[key]
}

func Warningf(ctx context.Context, format string, args ...interface{}) {
	msg, _ := formatMessage(ctx, false, format, args...)
	glog.WarningDepth(1, msg)
}

func Errorf(ctx context.Context, format string, args ...interface{}) {
	msg, _ := formatMessage(ctx, false, format, args...)
	glog.ErrorDepth(1, msg)
}

func Fatalf(ctx context.Context, format string, args ...interface{}) {
	msg, _ := formatMessage(ctx, false, format, args...)
	glog.FatalDepth(1, msg)
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	infof(ctx, false, format, args...)
}

// InfofErr logs at error level when the last argument is a non nil error, at info level
// otherwise. The error is appended to the message as err="..."
func InfofErr(ctx context.Context, format string, args ...interface{}) {
	infof(ctx, true, format, args...)
}

func infof(ctx context.Context, lastErr bool, format string, args ...interface{}) {
	msg, isErr := formatMessage(ctx, lastErr, format, args...)
	if isErr {
		glog.ErrorDepth(2, msg)
	} else {
		glog.InfoDepth(2, msg)
	}
}

// Infof is equivalent to the global Infof function, guarded by the value of v.
// See the documentation of V for usage.
func (v Verbose) Infof(ctx context.Context, format string, args ...interface{}) {
	if v {
		infof(ctx, false, format, args...)
	}
}

func (v Verbose) InfofErr(ctx context.Context, format string, args ...interface{}) {
	var err error
	if len(args) > 0 {
		err, _ = args[len(args)-1].(error)
	}
	if v || err != nil {
		infof(ctx, true, format, args...)
	}
}

func messageFromContext(ctx context.Context, sb *strings.Builder) {
	if ctx == nil {
		return
	}
	cmap, _ := ctx.Value(clogContextKey).(*values)
	if cmap == nil {
		return
	}
	cmap.mu.RLock()
	for _, key := range stdKeysOrder {
		if val, ok := cmap.vals[key]; ok {
			sb.WriteString(key)
			sb.WriteString("=")
			sb.WriteString(val)
			sb.WriteString(" ")
		}
	}
	for _, key := range cmap.order {
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(cmap.vals[key])
		sb.WriteString(" ")
	}
	cmap.mu.RUnlock()
}

func formatMessage(ctx context.Context, lastErr bool, format string, args ...interface{}) (string, bool) {
	var sb strings.Builder
	messageFromContext(ctx, &sb)

	var err error
	if lastErr && len(args) > 0 {
		err, _ = args[len(args)-1].(error)
		args = args[:len(args)-1]
	}
	sb.WriteString(fmt.Sprintf(format, args...))
	if err != nil {
		sb.WriteString(fmt.Sprintf(" err=%q", err.Error()))
	}
	return sb.String(), err != nil
}

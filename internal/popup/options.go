package popup

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/berrythewa/gpsio-bridge/internal/types"
)

// Options is the filter settings form. Every change persists the whole form.
type Options struct {
	backend Backend

	mu    sync.Mutex
	prefs types.Preferences
}

// NewOptions creates a form showing the defaults until Load is called
func NewOptions(backend Backend) *Options {
	return &Options{backend: backend, prefs: types.DefaultPreferences()}
}

// Load populates the form from the store
func (o *Options) Load(ctx context.Context) (types.Preferences, error) {
	prefs, err := o.backend.LoadPreferences(ctx)
	if err != nil {
		return types.Preferences{}, fmt.Errorf("failed to load options: %w", err)
	}
	o.mu.Lock()
	o.prefs = prefs
	o.mu.Unlock()
	return prefs, nil
}

// Values returns the form's current values
func (o *Options) Values() types.Preferences {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.prefs
}

// Set changes one control and saves the full form
func (o *Options) Set(ctx context.Context, field, value string) (types.Preferences, error) {
	o.mu.Lock()
	prefs := o.prefs
	o.mu.Unlock()

	switch field {
	case types.KeyMethod:
		if value != types.MethodTime && value != types.MethodRecent {
			return prefs, fmt.Errorf("invalid method %q: must be %q or %q", value, types.MethodTime, types.MethodRecent)
		}
		prefs.Method = value
	case types.KeyTimeSel:
		prefs.TimeSel = value
	case types.KeyRecentSel:
		prefs.RecentSel = value
	case types.KeySizeSel:
		prefs.SizeSel = value
	case types.KeySize, types.KeyRemoveNumbers:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return prefs, fmt.Errorf("invalid value for %s: %w", field, err)
		}
		if field == types.KeySize {
			prefs.Size = b
		} else {
			prefs.RemoveNumbers = b
		}
	default:
		return prefs, fmt.Errorf("unknown option %q", field)
	}

	if err := o.backend.SavePreferences(ctx, prefs.Patch()); err != nil {
		return prefs, fmt.Errorf("failed to save options: %w", err)
	}
	o.mu.Lock()
	o.prefs = prefs
	o.mu.Unlock()
	return prefs, nil
}

// Reset restores the defaults and persists them
func (o *Options) Reset(ctx context.Context) (types.Preferences, error) {
	prefs, err := o.backend.ResetPreferences(ctx)
	if err != nil {
		return types.Preferences{}, fmt.Errorf("failed to reset options: %w", err)
	}
	o.mu.Lock()
	o.prefs = prefs
	o.mu.Unlock()
	return prefs, nil
}

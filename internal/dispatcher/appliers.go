package dispatcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sysconfd/internal/location"
	"sysconfd/internal/ntp"
	"sysconfd/internal/types"
	"sysconfd/internal/validator"

	"go.uber.org/zap"
)

// Values written when a leaf is deleted
const (
	deletedHostname = "none"
	deletedContact  = ""
	deletedLocation = "none"
)

func (d *Dispatcher) applyHostname(_ context.Context, ev types.ConfigChangeEvent, _ *txnState) (bool, error) {
	name := ev.ValueOr("")
	if ev.Operation == types.OperationDeleted {
		name = deletedHostname
	}
	if !validator.IsHostname(name) {
		return false, types.NewError(types.KindInvalidValue, "set hostname", fmt.Errorf("invalid hostname %q", name))
	}
	if err := d.deps.Host.SetHostname(name); err != nil {
		return false, types.NewError(types.KindIOFailure, "set hostname", err)
	}
	d.logger.Info("Hostname set", zap.String("hostname", name))
	return true, nil
}

func (d *Dispatcher) applyContact(_ context.Context, ev types.ConfigChangeEvent, _ *txnState) (bool, error) {
	value := ev.ValueOr("")
	if ev.Operation == types.OperationDeleted {
		value = deletedContact
	}
	if err := d.deps.Passwd.SetField(d.deps.ContactUser, value); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Dispatcher) applyLocation(_ context.Context, ev types.ConfigChangeEvent, _ *txnState) (bool, error) {
	value := ev.ValueOr("")
	if ev.Operation == types.OperationDeleted {
		value = deletedLocation
	}
	if len(value) > location.MaxLocationLength {
		return false, types.NewError(types.KindInvalidValue, "set location",
			fmt.Errorf("location exceeds %d characters", location.MaxLocationLength))
	}
	if err := d.deps.Location.WriteValue(location.LocationKey, value); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Dispatcher) applyTimezoneName(_ context.Context, ev types.ConfigChangeEvent, _ *txnState) (bool, error) {
	if ev.Operation == types.OperationDeleted {
		removed, err := d.deps.Timezone.Unset()
		if err != nil {
			return false, err
		}
		return removed, nil
	}
	if err := d.deps.Timezone.SetZone(ev.ValueOr("")); err != nil {
		return false, err
	}
	return true, nil
}

// applyTimezoneOffset accepts the leaf without effect; fixed offsets are
// not mapped onto the zone link
func (d *Dispatcher) applyTimezoneOffset(_ context.Context, ev types.ConfigChangeEvent, _ *txnState) (bool, error) {
	d.logger.Debug("Timezone offset accepted without effect",
		zap.String("operation", string(ev.Operation)),
		zap.String("value", ev.ValueOr("")))
	return false, nil
}

func (d *Dispatcher) applyUnknown(_ context.Context, ev types.ConfigChangeEvent, _ *txnState) (bool, error) {
	d.logger.Debug("No applier for path, accepted without effect", zap.String("path", ev.Path))
	return false, nil
}

func (d *Dispatcher) applyNTP(_ context.Context, ev types.ConfigChangeEvent, txn *txnState) (bool, error) {
	txn.ntpTouched = true

	switch {
	case ev.Path == NTPEnabledPath:
		enabled := false
		if ev.Operation != types.OperationDeleted {
			b, err := parseBool(ev.ValueOr(""))
			if err != nil {
				return false, err
			}
			enabled = b
		}
		// Counted once the toggle runs at the end of the commit.
		txn.ntpEnabled = &enabled
		return false, nil

	case underPrefix(ev.Path, NTPServerPrefix):
		ref, err := parseServerPath(ev.Path)
		if err != nil {
			return false, err
		}
		if ev.Operation == types.OperationDeleted {
			return d.deleteServerLeaf(ref)
		}
		return d.setServerLeaf(ref, ev.ValueOr(""))

	default:
		d.logger.Debug("NTP leaf accepted without effect", zap.String("path", ev.Path))
		return false, nil
	}
}

func (d *Dispatcher) setServerLeaf(ref serverRef, value string) (bool, error) {
	reg := d.deps.NTP

	var err error
	switch ref.Leaf {
	case "", leafName:
		err = reg.CreateServer(ref.Name)
	case leafAddress:
		err = reg.SetAddress(ref.Name, value)
	case leafPort:
		err = reg.SetPort(ref.Name, value)
	case leafAssociationType:
		err = reg.SetAssociationType(ref.Name, value)
	case leafIburst:
		var on bool
		if on, err = parseBool(value); err == nil {
			err = reg.SetIburst(ref.Name, on)
		}
	case leafPrefer:
		var on bool
		if on, err = parseBool(value); err == nil {
			err = reg.SetPrefer(ref.Name, on)
		}
	default:
		d.logger.Debug("Unsupported NTP server leaf ignored",
			zap.String("server", ref.Name),
			zap.String("leaf", ref.Leaf))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// deleteServerLeaf removes the entry when its key goes away and reverts
// other leaves to their defaults. Leaves of an entry that is already gone
// are ignored.
func (d *Dispatcher) deleteServerLeaf(ref serverRef) (bool, error) {
	reg := d.deps.NTP

	if ref.Leaf == "" || ref.Leaf == leafName {
		return reg.RemoveServer(ref.Name), nil
	}
	if _, ok := reg.Server(ref.Name); !ok {
		return false, nil
	}

	var err error
	switch ref.Leaf {
	case leafAddress:
		err = reg.SetAddress(ref.Name, "")
	case leafPort:
		err = reg.SetPort(ref.Name, strconv.Itoa(ntp.DefaultPort))
	case leafAssociationType:
		err = reg.SetAssociationType(ref.Name, string(ntp.AssociationServer))
	case leafIburst:
		err = reg.SetIburst(ref.Name, false)
	case leafPrefer:
		err = reg.SetPrefer(ref.Name, false)
	default:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func parseBool(s string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, types.NewError(types.KindParseError, "parse boolean", err)
	}
	return b, nil
}

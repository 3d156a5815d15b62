package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/modbisect/internal/ctxlog"
	"github.com/specialistvlad/modbisect/internal/mod"
	"github.com/specialistvlad/modbisect/internal/modpack"
	"github.com/specialistvlad/modbisect/internal/report"
)

// Validate reports requirement problems. It returns ErrProblems when any
// were found.
func (a *App) Validate(ctx context.Context) error {
	ctx = a.context(ctx)
	if err := a.ensureInstance(ctx, false); err != nil {
		return err
	}
	p, bad, err := a.loadPack(ctx)
	if err != nil {
		return err
	}
	if n := report.Problems(a.outW, p, bad); n > 0 {
		return fmt.Errorf("%w: %d", ErrProblems, n)
	}
	return nil
}

// WhyDepends explains what id requires and what requires it.
func (a *App) WhyDepends(ctx context.Context, id string, onlyErrors bool) error {
	ctx = a.context(ctx)
	if err := a.ensureInstance(ctx, false); err != nil {
		return err
	}
	p, _, err := a.loadPack(ctx)
	if err != nil {
		return err
	}
	why, err := p.WhyDepends(id, onlyErrors)
	if err != nil {
		return err
	}
	report.Why(a.outW, why)
	return nil
}

// ManageAll enables or disables every jar with the user's permanent marker.
func (a *App) ManageAll(ctx context.Context, enable bool) error {
	ctx = a.context(ctx)
	if err := a.ensureInstance(ctx, false); err != nil {
		return err
	}
	release, err := a.lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	verb, fn := "disabled", modpack.DisableAll
	if enable {
		verb, fn = "enabled", modpack.EnableAll
	}
	n, err := fn(a.modsDir())
	fmt.Fprintf(a.outW, "%d mod file(s) %s.\n", n, verb)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("Mods managed.", "action", verb, "count", n)
	return nil
}

// Toggle enables or disables one mod. Without permanent the search's
// transient marker is used, so requirements follow the mod and clean undoes
// it. With permanent only that mod's file gets or loses the user's marker.
func (a *App) Toggle(ctx context.Context, id string, enable, permanent bool) error {
	ctx = a.context(ctx)
	if err := a.ensureInstance(ctx, false); err != nil {
		return err
	}
	release, err := a.lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	var opts []modpack.LoadOption
	if permanent {
		opts = append(opts, modpack.IncludeDisabled())
	}
	p, _, err := a.loadPack(ctx, opts...)
	if err != nil {
		return err
	}
	m, ok := p.Set.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", modpack.ErrUnknownMod, id)
	}

	if permanent {
		from := m.State()
		changed, err := p.Set.SetPermanent(m, enable)
		if err != nil {
			return err
		}
		if changed {
			a.describeChanges(mod.Changes{{Mod: m, From: from, To: m.State()}})
		}
		return nil
	}

	var changes mod.Changes
	if enable {
		changes, err = p.Set.Enable(m)
	} else {
		changes, err = p.Set.Disable(m)
	}
	a.describeChanges(changes)
	return err
}

// Clean lifts every transient marker left by an interrupted search.
func (a *App) Clean(ctx context.Context) error {
	ctx = a.context(ctx)
	if err := a.ensureInstance(ctx, false); err != nil {
		return err
	}
	release, err := a.lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	n, err := modpack.Clean(a.modsDir())
	fmt.Fprintf(a.outW, "%d mod file(s) restored.\n", n)
	return err
}

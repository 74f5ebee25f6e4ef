package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arcbet/livefeed/internal/archive"
	"github.com/arcbet/livefeed/internal/channel"
	"github.com/arcbet/livefeed/internal/config"
	"github.com/arcbet/livefeed/internal/events"
	"github.com/arcbet/livefeed/internal/feed"
	"github.com/arcbet/livefeed/internal/rest"
	"github.com/arcbet/livefeed/internal/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("Starting live feed")

	bus := events.NewBus()
	sport := events.Sport(cfg.Sport)

	// ── Subscription limits ─────────────────────────────────────
	limits, err := config.LoadSubLimits(cfg.LimitsPath)
	if err != nil {
		telemetry.Warnf("Subscription limits: %v (using defaults)", err)
		limits = config.DefaultSubLimits()
	}

	// ── REST client + dictionaries ──────────────────────────────
	api := rest.NewClient(cfg.APIBaseURL)
	dicts := rest.NewDictionaries(api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dicts.Ensure(ctx, sport); err != nil {
		telemetry.Warnf("Dictionaries for %s unavailable: %v", sport, err)
	}

	if cfg.PregameFilter != "" {
		if !rest.ValidFilter(cfg.PregameFilter) {
			telemetry.Warnf("Unknown pregame filter %q", cfg.PregameFilter)
		} else if groups, err := api.PregameLeagues(ctx, sport, cfg.PregameFilter); err != nil {
			telemetry.Warnf("Pregame leagues: %v", err)
		} else {
			total := 0
			for _, g := range groups {
				total += len(g.Leagues)
			}
			telemetry.Infof("Pregame %s (%s): %d leagues in %d countries",
				sport, rest.FilterLabel(cfg.PregameFilter), total, len(groups))
		}
	}

	// ── Feed state ──────────────────────────────────────────────
	col := feed.NewCollection()
	detail := feed.NewDetail()

	// ── Raw message archive ─────────────────────────────────────
	var store *archive.Store
	if cfg.ArchiveEnabled {
		store, err = archive.Open(cfg.ArchivePath)
		if err != nil {
			telemetry.Warnf("Archive disabled: %v", err)
		}
	}

	// ── Channel socket + manager ────────────────────────────────
	sock := channel.NewSocket(cfg.SocketURL)
	sock.SetBackoff(cfg.ReconnectMin, cfg.ReconnectMax)
	sock.SetHeartbeat(cfg.HeartbeatEvery)
	sock.OnRaw(func(topic, event string, raw []byte) {
		store.Insert(topic, event, raw)
	})

	bus.Subscribe(events.EventMatchUpdate, func(e events.Event) error {
		md, ok := e.Payload.(events.MatchData)
		if !ok {
			return nil
		}
		telemetry.Debugf("update %s/%s: %s %d-%d %s (period %d)",
			e.Sport, e.MatchID, md.T1.Name, md.T1.Score, md.T2.Score, md.T2.Name, md.Period)
		return nil
	})
	bus.Subscribe(events.EventMatchDetailUpdate, func(e events.Event) error {
		v := detail.Snapshot()
		if v.Data == nil {
			return nil
		}
		for _, mkt := range v.Data.Odds {
			telemetry.Debugf("odds %s/%s: %s (%d outcomes)",
				e.Sport, e.MatchID, dicts.MarketName(e.Sport, mkt.ID), len(mkt.O))
		}
		return nil
	})

	mgr := feed.NewManager(feed.NewSocketTransport(sock), col, detail, bus, limits)
	sock.OnStatus(func(st channel.State) {
		mgr.SetConnected(st == channel.StateConnected)
	})

	// ── Bootstrap from REST before the socket delivers updates ──
	if leagues, err := api.Matches(ctx, sport); err != nil {
		telemetry.Warnf("Initial snapshot for %s: %v", sport, err)
	} else {
		col.ReplaceSport(sport, leagues)
		telemetry.Infof("Snapshot loaded  sport=%s  leagues=%d", sport, len(leagues))
	}

	mgr.SelectSport(sport)

	go func() {
		if err := sock.Connect(ctx); err != nil {
			telemetry.Errorf("Socket: %v", err)
		}
	}()

	// Periodic sweep picks up join retries whose backoff has elapsed.
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mgr.Reconcile()
			}
		}
	}()

	// ── Shutdown ────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	telemetry.Infof("Shutting down...")
	cancel()
	sock.Close()

	if store != nil {
		rows, bytes := store.Stats()
		telemetry.Infof("Archive  rows=%d  bytes=%d", rows, bytes)
		store.Close()
	}

	telemetry.Infof("Shutdown complete  received=%d  applied=%d  dropped=%d  joins=%d  join_errors=%d  reconnects=%d",
		telemetry.Metrics.MessagesReceived.Value(),
		telemetry.Metrics.UpdatesApplied.Value(),
		telemetry.Metrics.UpdatesDropped.Value(),
		telemetry.Metrics.ChannelsJoined.Value(),
		telemetry.Metrics.JoinErrors.Value(),
		telemetry.Metrics.Reconnects.Value(),
	)
}

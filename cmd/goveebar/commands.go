package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"govee-bar/config"
	"govee-bar/internal/application"
	"govee-bar/internal/domain"
	"govee-bar/internal/infra/httpapi"
)

var errUsage = errors.New("invalid usage")

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, cmd string, args []string) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing", "error", err)
		}
	}()

	out := os.Stdout

	switch cmd {
	case "serve":
		return a.serve(ctx)
	case "devices":
		return a.devices(ctx, out)
	case "state":
		return a.state(ctx, out, args)
	case "control":
		return a.control(ctx, args)
	case "scenes":
		return a.scenes(ctx, out, args)
	case "key":
		return a.key(ctx, out, args)
	case "mirror":
		return a.mirror(ctx, out, args)
	default:
		return usageErr("unknown command %q", cmd)
	}
}

func (a *app) serve(ctx context.Context) error {
	server := httpapi.New(httpapi.Config{
		Addr:          a.cfg.Server.Addr,
		ControlRate:   a.cfg.Server.ControlRate,
		ControlWindow: config.Duration(a.cfg.Server.ControlWindow),
	}, a.service, a.logger)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting HTTP API: %w", err)
	}

	if a.cfg.Mirror.Enabled {
		sinks, err := a.sinks(ctx)
		if err != nil {
			_ = server.Stop()
			return err
		}
		mirror := application.NewMirror(a.client, sinks, a.logger)
		mirror.Start(ctx, config.Duration(a.cfg.Mirror.Interval))
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
		return server.Stop()
	case err, ok := <-server.Errors():
		_ = server.Stop()
		if !ok {
			return nil
		}
		return fmt.Errorf("serving HTTP API: %w", err)
	}
}

func (a *app) devices(ctx context.Context, out io.Writer) error {
	devices, err := a.service.ListDevices(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, devices)
}

func (a *app) state(ctx context.Context, out io.Writer, args []string) error {
	if len(args) != 2 {
		return usageErr("state <sku> <device>")
	}
	state, err := a.service.GetDeviceState(ctx, args[1], args[0])
	if err != nil {
		return err
	}
	return printJSON(out, state)
}

func (a *app) scenes(ctx context.Context, out io.Writer, args []string) error {
	if len(args) != 3 {
		return usageErr("scenes light|diy <sku> <device>")
	}
	kind, err := domain.ParseSceneKind(args[0])
	if err != nil {
		return usageErr("%v", err)
	}
	options, err := a.service.ListScenes(ctx, kind, args[2], args[1])
	if err != nil {
		return err
	}
	return printJSON(out, options)
}

func (a *app) control(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return usageErr("control <sku> <device> <action> [args]")
	}
	sku, device, action, rest := args[0], args[1], args[2], args[3:]

	cmd, err := a.buildCommand(ctx, sku, device, action, rest)
	if err != nil {
		return err
	}
	return a.service.SendControl(ctx, cmd)
}

func (a *app) buildCommand(ctx context.Context, sku, device, action string, args []string) (domain.ControlCommand, error) {
	switch action {
	case "power":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return domain.ControlCommand{}, usageErr("power on|off")
		}
		return domain.PowerCommand(device, sku, args[0] == "on"), nil

	case "brightness":
		if len(args) != 1 {
			return domain.ControlCommand{}, usageErr("brightness <1-100>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return domain.ControlCommand{}, usageErr("brightness: %v", err)
		}
		return domain.BrightnessCommand(device, sku, n), nil

	case "color":
		if len(args) != 3 {
			return domain.ControlCommand{}, usageErr("color <r> <g> <b>")
		}
		var rgb [3]uint8
		for i, s := range args {
			n, err := strconv.ParseUint(s, 10, 8)
			if err != nil {
				return domain.ControlCommand{}, usageErr("color: %v", err)
			}
			rgb[i] = uint8(n)
		}
		return domain.ColorCommand(device, sku, rgb[0], rgb[1], rgb[2]), nil

	case "scene":
		if len(args) < 2 {
			return domain.ControlCommand{}, usageErr("scene light|diy <name>")
		}
		kind, err := domain.ParseSceneKind(args[0])
		if err != nil {
			return domain.ControlCommand{}, usageErr("%v", err)
		}
		options, err := a.service.ListScenes(ctx, kind, device, sku)
		if err != nil {
			return domain.ControlCommand{}, err
		}
		opt, ok := findScene(options, strings.Join(args[1:], " "))
		if !ok {
			return domain.ControlCommand{}, fmt.Errorf("no %s scene named %q", kind, strings.Join(args[1:], " "))
		}
		return domain.SceneCommand(device, sku, kind, opt), nil

	case "raw":
		if len(args) != 3 {
			return domain.ControlCommand{}, usageErr("raw <type> <instance> <json>")
		}
		var v domain.Value
		if err := json.Unmarshal([]byte(args[2]), &v); err != nil {
			return domain.ControlCommand{}, usageErr("raw value: %v", err)
		}
		return domain.ControlCommand{DeviceID: device, SKU: sku, Kind: args[0], Instance: args[1], Value: v}, nil

	default:
		return domain.ControlCommand{}, usageErr("unknown control action %q", action)
	}
}

func findScene(options []domain.SceneOption, name string) (domain.SceneOption, bool) {
	for _, o := range options {
		if strings.EqualFold(o.Name, name) {
			return o, true
		}
	}
	return domain.SceneOption{}, false
}

func (a *app) key(ctx context.Context, out io.Writer, args []string) error {
	if len(args) == 0 || args[0] == "get" {
		key, ok := a.service.GetAPIKey()
		if !ok {
			return fmt.Errorf("API key not set")
		}
		_, err := fmt.Fprintln(out, key)
		return err
	}
	if args[0] != "set" || len(args) != 2 {
		return usageErr("key [get | set <api-key>]")
	}
	if err := a.service.SetAPIKey(ctx, args[1]); err != nil {
		return err
	}
	a.logger.Info("API key saved")
	return nil
}

func (a *app) mirror(ctx context.Context, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("mirror", flag.ContinueOnError)
	once := fs.Bool("once", false, "run a single cycle and exit")
	if err := fs.Parse(args); err != nil {
		return usageErr("%v", err)
	}

	sinks, err := a.sinks(ctx)
	if err != nil {
		return err
	}
	if len(sinks) == 0 {
		sinks = append(sinks, &writerSink{w: out})
	}

	m := application.NewMirror(a.client, sinks, a.logger)
	if *once {
		_, err := m.RunOnce(ctx)
		return err
	}
	return m.Run(ctx, config.Duration(a.cfg.Mirror.Interval))
}

// writerSink prints state snapshots as JSON lines when no sink is configured.
type writerSink struct {
	w io.Writer
}

func (s *writerSink) PublishState(_ context.Context, state domain.DeviceState) error {
	return json.NewEncoder(s.w).Encode(state)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

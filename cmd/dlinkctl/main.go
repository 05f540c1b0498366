package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/LukaGiorgadze/gonull"
	"github.com/abiosoft/ishell/v2"
	"github.com/edup2p/directlink/directlink"
	"github.com/edup2p/directlink/directlink/metrics"
	"github.com/edup2p/directlink/types"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	programLevel = new(slog.LevelVar) // Info by default

	fw     *simFirmware
	policy *simPolicy
	mgr    *directlink.Manager
)

const requestTimeout = 2 * time.Second

func main() {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel, AddSource: true})
	slog.SetDefault(slog.New(h))

	s, err := loadSettings(os.Args[1:])
	if err != nil {
		slog.Error("could not load settings", "err", err)
		os.Exit(2)
	}

	reg := prometheus.NewRegistry()

	fw = newSimFirmware()
	policy = &simPolicy{sessions: 1}

	mgr, err = directlink.New(context.Background(), s.cfg, fw, policy,
		directlink.WithMetrics(reg), directlink.WithInterface(s.iface))
	if err != nil {
		slog.Error("could not create link manager", "err", err)
		os.Exit(1)
	}
	fw.m = mgr
	mgr.Start()
	defer mgr.Stop()

	if s.metricsAddr != "" {
		go func() {
			slog.Info("serving metrics", "addr", s.metricsAddr)
			if err := http.ListenAndServe(s.metricsAddr, metrics.Handler(reg)); err != nil {
				slog.Error("metrics listener stopped", "err", err)
			}
		}()
	}

	shell := ishell.New()

	shell.SetHomeHistoryPath(".dlinkctl_history")

	shell.Println("Direct Link Interactive Shell, interface", s.iface)

	mgr.RegisterStateChangeListener(func(sc link.StateChange) {
		shell.Printf("[%s] %s (%s) reason=%s teardown=%s ch=%d/%d\n",
			sc.Addr, sc.State, sc.Status, sc.Reason, sc.Teardown, sc.Channel, sc.OpClass)
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "trace",
		Help: "set log level to trace",
		Func: func(c *ishell.Context) {
			programLevel.Set(types.LevelTrace)
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "debug",
		Help: "set log level to debug",
		Func: func(c *ishell.Context) {
			programLevel.Set(slog.LevelDebug)
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "info",
		Help: "set log level to info",
		Func: func(c *ishell.Context) {
			programLevel.Set(slog.LevelInfo)
		},
	})

	shell.AddCmd(modeCmd())
	shell.AddCmd(peersCmd())
	shell.AddCmd(peerOpCmd("add", "register a peer", mgr.AddPeer))
	shell.AddCmd(peerOpCmd("remove", "forget a peer", mgr.RemovePeer))
	shell.AddCmd(peerOpCmd("connect", "start a link with a peer", mgr.Connect))
	shell.AddCmd(peerOpCmd("disconnect", "tear a link down", mgr.Disconnect))
	shell.AddCmd(peerOpCmd("unforce", "unpin a peer", mgr.Unforce))
	shell.AddCmd(forceCmd())
	shell.AddCmd(trafficCmd())
	shell.AddCmd(thresholdCmd())
	shell.AddCmd(scanCmd())
	shell.AddCmd(eventCmd())
	shell.AddCmd(simCmd())

	shell.Run()
}

func reqCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func argAddr(c *ishell.Context, i int) (hwaddr.HWAddr, bool) {
	if len(c.Args) <= i {
		c.Err(errors.New("missing peer address"))
		return hwaddr.HWAddr{}, false
	}

	a, err := hwaddr.Parse(c.Args[i])
	if err != nil {
		c.Err(err)
		return hwaddr.HWAddr{}, false
	}
	return a, true
}

func argInt(c *ishell.Context, i int, def int) (int, bool) {
	if len(c.Args) <= i {
		return def, true
	}

	n, err := strconv.Atoi(c.Args[i])
	if err != nil {
		c.Err(err)
		return 0, false
	}
	return n, true
}

func argOnOff(c *ishell.Context, i int) (bool, bool) {
	if len(c.Args) <= i {
		c.Err(errors.New("expected on or off"))
		return false, false
	}

	switch c.Args[i] {
	case "on":
		return true, true
	case "off":
		return false, true
	default:
		c.Err(fmt.Errorf("expected on or off, got %q", c.Args[i]))
		return false, false
	}
}

func modeCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "mode",
		Help: "show or set the support mode (not-enabled, disabled, explicit, enabled, external)",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Println("mode:", mgr.Mode(), "links:", mgr.ConnectedCount())
				return
			}

			m, err := link.ParseMode(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}

			ctx, cancel := reqCtx()
			defer cancel()

			if err := mgr.SetMode(ctx, m); err != nil {
				c.Err(err)
			}
		},
	}
}

func peersCmd() *ishell.Cmd {
	c := &ishell.Cmd{
		Name: "peers",
		Help: "list known peers",
		Func: func(c *ishell.Context) {
			ctx, cancel := reqCtx()
			defer cancel()

			list, err := mgr.Peers(ctx)
			if err != nil {
				c.Err(err)
				return
			}

			c.Printf("%-4s %-17s %-12s %-13s %-6s %-9s %-6s %s\n",
				"id", "addr", "status", "capability", "rssi", "role", "forced", "reason")
			for _, p := range list {
				rssi := "-"
				if p.RSSI.Valid {
					rssi = strconv.Itoa(p.RSSI.Val)
				}
				role := "initiator"
				if p.Responder {
					role = "responder"
				}
				c.Printf("%-4d %-17s %-12s %-13s %-6s %-9s %-6t %s\n",
					p.ID, p.Addr, p.Status, p.Capability, rssi, role, p.Forced, p.Reason)
			}
		},
	}

	c.AddCmd(&ishell.Cmd{
		Name: "dump",
		Help: "write the peer list to a file as a BSON document",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing file name"))
				return
			}

			ctx, cancel := reqCtx()
			defer cancel()

			list, err := mgr.Peers(ctx)
			if err != nil {
				c.Err(err)
				return
			}

			b, err := bson.Marshal(bson.M{
				"taken": time.Now(),
				"mode":  mgr.Mode().String(),
				"peers": list,
			})
			if err != nil {
				c.Err(err)
				return
			}

			if err := os.WriteFile(c.Args[0], b, 0o644); err != nil {
				c.Err(err)
				return
			}

			c.Println("wrote", len(list), "peers to", c.Args[0])
		},
	})

	return c
}

func peerOpCmd(name, help string, op func(context.Context, hwaddr.HWAddr) error) *ishell.Cmd {
	return &ishell.Cmd{
		Name: name,
		Help: help + " <addr>",
		Func: func(c *ishell.Context) {
			a, ok := argAddr(c, 0)
			if !ok {
				return
			}

			ctx, cancel := reqCtx()
			defer cancel()

			if err := op(ctx, a); err != nil {
				c.Err(err)
			}
		},
	}
}

func forceCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "force",
		Help: "pin a peer <addr> [off-channel [op-class]]",
		Func: func(c *ishell.Context) {
			a, ok := argAddr(c, 0)
			if !ok {
				return
			}

			var pc directlink.PeerConfig

			if len(c.Args) > 1 {
				ch, ok := argInt(c, 1, 0)
				if !ok {
					return
				}
				pc.OffChannel = gonull.NewNullable(uint8(ch))
			}
			if len(c.Args) > 2 {
				op, ok := argInt(c, 2, 0)
				if !ok {
					return
				}
				pc.OffChannelOpClass = gonull.NewNullable(uint8(op))
			}

			pc.Callback = func(sc link.StateChange) {
				c.Printf("forced peer %s is now %s\n", sc.Addr, sc.State)
			}

			ctx, cancel := reqCtx()
			defer cancel()

			if err := mgr.Force(ctx, a, pc); err != nil {
				c.Err(err)
			}
		},
	}
}

func trafficCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "traffic",
		Help: "simulate packets to a peer <addr> [count] [rx]",
		Func: func(c *ishell.Context) {
			a, ok := argAddr(c, 0)
			if !ok {
				return
			}

			n, ok := argInt(c, 1, 100)
			if !ok {
				return
			}

			rx := len(c.Args) > 2 && c.Args[2] == "rx"

			for i := 0; i < n; i++ {
				if rx {
					mgr.RecordRx(a)
				} else {
					mgr.RecordTx(a)
				}
			}
		},
	}
}

func thresholdCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "threshold",
		Help: "set a threshold <trigger|idle|idle-timeout|tx-period|rssi-trigger|rssi-teardown|rssi-delta> <value>",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 2 {
				c.Err(errors.New("expected a name and a value"))
				return
			}

			var u directlink.ThresholdUpdate
			name, val := c.Args[0], c.Args[1]

			switch name {
			case "idle-timeout", "tx-period":
				d, err := time.ParseDuration(val)
				if err != nil {
					c.Err(err)
					return
				}
				if name == "idle-timeout" {
					u.IdleTimeout = gonull.NewNullable(d)
				} else {
					u.TxPeriod = gonull.NewNullable(d)
				}
			default:
				n, err := strconv.Atoi(val)
				if err != nil {
					c.Err(err)
					return
				}

				switch name {
				case "trigger":
					u.TriggerPackets = gonull.NewNullable(uint32(n))
				case "idle":
					u.IdlePackets = gonull.NewNullable(uint32(n))
				case "rssi-trigger":
					u.RSSITrigger = gonull.NewNullable(n)
				case "rssi-teardown":
					u.RSSITeardown = gonull.NewNullable(n)
				case "rssi-delta":
					u.RSSIDelta = gonull.NewNullable(n)
				default:
					c.Err(fmt.Errorf("unknown threshold %q", name))
					return
				}
			}

			ctx, cancel := reqCtx()
			defer cancel()

			if err := mgr.SetThresholds(ctx, u); err != nil {
				c.Err(err)
			}
		},
	}
}

func scanCmd() *ishell.Cmd {
	c := &ishell.Cmd{
		Name: "scan",
		Help: "request a scan",
		Func: func(c *ishell.Context) {
			ctx, cancel := reqCtx()
			defer cancel()

			v, err := mgr.RequestScan(ctx)
			if err != nil {
				c.Err(err)
				return
			}

			c.Println("verdict:", v)
		},
	}

	c.AddCmd(&ishell.Cmd{
		Name: "done",
		Help: "report the scan finished",
		Func: func(c *ishell.Context) {
			mgr.ScanDone()
		},
	})

	return c
}

func eventCmd() *ishell.Cmd {
	c := &ishell.Cmd{
		Name: "event",
		Help: "deliver global policy events",
	}

	c.AddCmd(&ishell.Cmd{
		Name: "sessions",
		Help: "set the number of concurrent sessions <n>",
		Func: func(c *ishell.Context) {
			n, ok := argInt(c, 0, 1)
			if !ok {
				return
			}
			policy.update(func(p *simPolicy) { p.sessions = n })
			mgr.ConcurrencyChanged()
		},
	})

	c.AddCmd(&ishell.Cmd{
		Name: "coex",
		Help: "set the coexistence restriction <on|off>",
		Func: func(c *ishell.Context) {
			on, ok := argOnOff(c, 0)
			if !ok {
				return
			}
			policy.update(func(p *simPolicy) { p.coex = on })
			mgr.CoexChanged()
		},
	})

	c.AddCmd(&ishell.Cmd{
		Name: "antenna",
		Help: "switch antenna configuration <on|off> (on restricts)",
		Func: func(c *ishell.Context) {
			on, ok := argOnOff(c, 0)
			if !ok {
				return
			}
			policy.update(func(p *simPolicy) { p.antenna = on })
			mgr.AntennaSwitch()
		},
	})

	c.AddCmd(&ishell.Cmd{
		Name: "external-scan",
		Help: "mark a scan by another component <on|off>",
		Func: func(c *ishell.Context) {
			on, ok := argOnOff(c, 0)
			if !ok {
				return
			}
			policy.update(func(p *simPolicy) { p.scanning = on })
		},
	})

	c.AddCmd(&ishell.Cmd{
		Name: "low-throughput",
		Help: "hold back automatic links <on|off>",
		Func: func(c *ishell.Context) {
			on, ok := argOnOff(c, 0)
			if !ok {
				return
			}
			mgr.SetLowThroughput(on)
		},
	})

	c.AddCmd(&ishell.Cmd{
		Name: "assoc-lost",
		Help: "drop the association with the access point",
		Func: func(c *ishell.Context) {
			mgr.AssociationLost()
		},
	})

	return c
}

func simCmd() *ishell.Cmd {
	c := &ishell.Cmd{
		Name: "sim",
		Help: "simulated firmware behaviour",
	}

	c.AddCmd(&ishell.Cmd{
		Name: "rssi",
		Help: "set a peer's signal strength <addr> <dbm>, reported now and on discovery",
		Func: func(c *ishell.Context) {
			a, ok := argAddr(c, 0)
			if !ok {
				return
			}
			n, ok := argInt(c, 1, simDefaultRSSI)
			if !ok {
				return
			}

			fw.setRSSI(a, n)
			mgr.UpdateRSSI(a, n)
		},
	})

	c.AddCmd(&ishell.Cmd{
		Name: "reachable",
		Help: "make a peer answer or ignore requests <addr> <on|off>",
		Func: func(c *ishell.Context) {
			a, ok := argAddr(c, 0)
			if !ok {
				return
			}
			on, ok := argOnOff(c, 1)
			if !ok {
				return
			}

			fw.setReachable(a, on)
		},
	})

	c.AddCmd(&ishell.Cmd{
		Name: "setup-result",
		Help: "set the reason code a peer answers setup with <addr> <code>, 0 for success",
		Func: func(c *ishell.Context) {
			a, ok := argAddr(c, 0)
			if !ok {
				return
			}
			n, ok := argInt(c, 1, 0)
			if !ok {
				return
			}

			fw.setSetupResult(a, link.Reason(n))
		},
	})

	c.AddCmd(&ishell.Cmd{
		Name: "caps",
		Help: "report peer capabilities <addr> [buffer-sta]",
		Func: func(c *ishell.Context) {
			a, ok := argAddr(c, 0)
			if !ok {
				return
			}

			mgr.PeerCapabilities(a, directlink.PeerCaps{
				SupportedChannels:  []uint8{1, 6, 11, 36, 40, 44, 48},
				SupportedOpClasses: []uint8{81, 115},
				SpatialStreams:     2,
				QoS:                true,
				BufferSTA:          len(c.Args) > 1 && c.Args[1] == "buffer-sta",
				OffChannel:         true,
			})
		},
	})

	return c
}

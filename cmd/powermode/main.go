package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/powermode/audio"
	"github.com/lixenwraith/powermode/config"
	"github.com/lixenwraith/powermode/engine"
	"github.com/lixenwraith/powermode/host"
	"github.com/lixenwraith/powermode/notify"
	"github.com/lixenwraith/powermode/wow"
)

var (
	configFlag      = flag.String("config", "", "Settings file (.toml, .yaml or .yml), reloaded on change")
	debugFlag       = flag.Bool("debug", false, "Write logs to logs/powermode.log")
	colorFlag       = flag.String("color", "", "Override color mode: cursor, custom, rainbow")
	shakeFlag       = flag.Bool("shake", false, "Override screen shake")
	cursorFlag      = flag.String("cursor", "callback", "Cursor acquisition: callback, observe")
	cursorColorFlag = flag.String("cursor-color", host.DefaultCursorColor, "Terminal cursor color (name or hex)")
	shellFlag       = flag.String("shell", "bash", "Shell name used in command-not-found output")
	muteFlag        = flag.Bool("mute", false, "Disable the wow mode chime")
	wowFlag         = flag.Bool("wow", false, "Start with wow mode on")
)

func main() {
	var restore func()

	// Panic Recovery: ensure terminal is reset even if the loop crashes
	defer func() {
		if r := recover(); r != nil {
			if restore != nil {
				restore()
			}
			fmt.Fprintf(os.Stderr, "\n\x1b[31mPOWERMODE CRASHED: %v\x1b[0m\n", r)
			fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
			os.Exit(1)
		}
	}()

	flag.Parse()

	if logFile := setupLogging(*debugFlag); logFile != nil {
		defer logFile.Close()
	}

	settings, err := loadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid settings: %v\n", err)
		os.Exit(1)
	}
	store := config.NewStore(settings)

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize terminal: %v\n", err)
		os.Exit(1)
	}
	restore = sync.OnceFunc(screen.Fini)
	defer restore()

	if err := run(screen, store, restore); err != nil {
		restore()
		fmt.Fprintf(os.Stderr, "powermode: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings reads the settings file, then applies flag overrides
func loadSettings() (config.Settings, error) {
	settings := config.Defaults()
	if *configFlag != "" {
		var err error
		if settings, err = config.Load(*configFlag); err != nil {
			return settings, err
		}
	}

	if *colorFlag != "" {
		mode, err := config.ParseColorMode(*colorFlag)
		if err != nil {
			return settings, err
		}
		settings.ColorMode = mode
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "shake" {
			settings.Shake = *shakeFlag
		}
	})

	return settings, engine.ValidateSettings(settings)
}

// run wires the overlay to the terminal and drives the loop until the user quits
func run(screen tcell.Screen, store *config.Store, restore func()) error {
	term := host.NewTerminal(screen,
		host.WithShell(*shellFlag),
		host.WithCursorColor(*cursorColorFlag),
	)
	loop := engine.NewLoop(engine.DefaultFrameInterval)

	eng, err := engine.New(term, loop, store.Get())
	if err != nil {
		return err
	}
	log.Printf("[main] engine %s, settings %+v", eng.ID(), store.Get())

	// Notification sinks: toast always, chime and desktop when available
	sinks := notify.Multi{term}
	if !*muteFlag {
		chime := audio.NewChime()
		if err := chime.Initialize(); err != nil {
			log.Printf("[audio] chime disabled: %v", err)
		} else {
			defer chime.Cleanup()
			sinks = append(sinks, chime)
		}
	}
	if desktop, err := notify.NewDesktop(); err != nil {
		log.Printf("[notify] desktop notifications disabled: %v", err)
	} else {
		defer desktop.Wait()
		sinks = append(sinks, desktop)
	}

	tracker := wow.NewTracker(sinks)
	tracker.OnChange(eng.SetWowMode)
	tracker.Set(*wowFlag)
	term.OnOutput(func(out string) {
		tracker.Observe(out)
	})

	src, err := cursorSource(term)
	if err != nil {
		return err
	}
	if err := eng.OnReady(src); err != nil {
		return err
	}
	defer eng.Teardown()

	// Settings changes arrive on the watcher goroutine, apply them on the loop
	unsub := store.OnChange(func(s config.Settings) {
		loop.Post(func() {
			if err := eng.SetSettings(s); err != nil {
				log.Printf("[config] %v", err)
				return
			}
			log.Printf("[config] applied %+v", s)
		})
	})
	defer unsub()

	if *configFlag != "" {
		w, err := config.NewWatcher(*configFlag, store,
			config.WithValidator(engine.ValidateSettings),
			config.WithErrorHandler(func(err error) {
				log.Printf("[config] reload failed: %v", err)
				term.Notify("Settings not reloaded", err.Error())
			}),
		)
		if err != nil {
			log.Printf("[config] live reload disabled: %v", err)
		} else {
			defer w.Close()
		}
	}

	term.SetStatus(func() string {
		state := "off"
		if tracker.Enabled() {
			state = "on"
		}
		return fmt.Sprintf("%s | particles %d | wow %s | type 'wow' + Enter, Esc quits", eng.State(), eng.Particles(), state)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go pumpEvents(screen, func(ev tcell.Event) {
		loop.Post(func() {
			if !term.HandleEvent(ev) {
				cancel()
			}
		})
	}, func(r any) {
		restore()
		fmt.Fprintf(os.Stderr, "\r\n\x1b[31mEVENT POLLER CRASHED: %v\x1b[0m\r\n", r)
		fmt.Fprintf(os.Stderr, "Stack Trace:\r\n%s\r\n", debug.Stack())
		os.Exit(1)
	})

	loop.OnFrame(term.Draw)
	term.Draw()

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// pumpEvents forwards screen events until the screen is finalized
// A panic in the poller is handed to crash, which must restore the terminal
func pumpEvents(screen tcell.Screen, deliver func(tcell.Event), crash func(any)) {
	defer func() {
		if r := recover(); r != nil {
			crash(r)
		}
	}()

	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		deliver(ev)
	}
}

// cursorSource builds the adapter selected by -cursor
func cursorSource(term *host.Terminal) (engine.CursorSource, error) {
	switch *cursorFlag {
	case "callback":
		src := engine.NewCallbackSource()
		term.OnCursorMove(src.Emit)
		return src, nil
	case "observe":
		src := engine.NewObservedSource(term.CursorPosition)
		term.OnMutate(func() { src.Mutated() })
		return src, nil
	default:
		return nil, fmt.Errorf("unknown cursor mode %q (want callback or observe)", *cursorFlag)
	}
}

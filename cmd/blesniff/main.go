package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"blesniff/internal/advdata"
	"blesniff/internal/capture"
	"blesniff/internal/db"
	"blesniff/internal/gps"
	"blesniff/internal/ids"
	"blesniff/internal/serialport"
	"blesniff/internal/sniffer"
	"blesniff/internal/status"
	"blesniff/internal/util"
)

func main() {
	var (
		decodeFlag      = flag.String("decode", "", "Decode one advertising payload given as hex and exit")
		sourceFlag      = flag.String("source", "", "Capture source: hex|serial|adapter|bluez. If empty, interactive selection is used.")
		inputFlag       = flag.String("input", "-", "hex source: file with one payload per line ('-' for stdin)")
		serialDevFlag   = flag.String("serial-device", "", "serial source: sniffer device path (e.g., /dev/ttyACM0)")
		serialBaudFlag  = flag.Int("serial-baud", 115200, "serial source: baud rate")
		adapterFlag     = flag.String("adapter", "", "adapter/bluez source: Bluetooth adapter (e.g., hci0)")
		duplicatesFlag  = flag.Bool("duplicates", false, "bluez source: report unchanged advertisements on every poll")
		useGPSFlag      = flag.String("use-gps", "", "Use GPS? 'y' to enable, 'n' to skip.")
		gpsModeFlag     = flag.String("gps-mode", "auto", "GPS mode: auto|gpsd|serial|off")
		gpsdAddrFlag    = flag.String("gpsd-addr", "127.0.0.1:2947", "gpsd TCP address")
		gpsDeviceFlag   = flag.String("gps-device", "", "GPS serial device path (e.g., /dev/ttyUSB0)")
		gpsBaudFlag     = flag.Int("gps-baud", 9600, "GPS serial baud rate")
		dataDirFlag     = flag.String("data-dir", "./data", "Data directory root (expects default/ and custom/ subfolders)")
		customDataFlag  = flag.String("custom-data-dir", "", "Optional custom data directory path (overrides <data-dir>/custom)")
		dbFlag          = flag.String("db", "blesniff.db", "SQLite database path ('' disables storage)")
		jsonOutFlag     = flag.String("json-out", "", "Write one JSON object per frame to this file ('-' for stdout)")
		tagFlag         = flag.String("tag", "", "Tag stored with the capture session")
		workersFlag     = flag.Int("workers", 4, "Decode workers")
		cooldownFlag    = flag.Duration("cooldown", 30*time.Second, "Per-address throttle for ordinary advertisements (0 disables)")
		verboseFlag     = flag.Bool("verbose", false, "Print every decoded record")
		ridOnlyFlag     = flag.Bool("rid-only", false, "Only print advertisements carrying Remote ID")
		restartBlueZSvc = flag.Bool("restart-bluetooth", true, "Preflight: restart bluetooth service if no adapter is visible (requires root + systemctl)")
		statsInterval   = flag.Int("stats-interval", 30, "Console status interval in seconds (0 disables)")
		noColorFlag     = flag.Bool("no-color", false, "Disable ANSI colours")
	)
	flag.Parse()

	logFile, err := os.OpenFile("app.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if *jsonOutFlag == "-" {
		// Keep stdout clean for the JSON stream.
		util.SetConsole(os.Stderr, !*noColorFlag)
	} else if *noColorFlag {
		util.SetConsole(os.Stdout, false)
	}

	resolver, err := ids.Load(ids.LoadConfig{DataDir: strings.TrimSpace(*dataDirFlag), CustomDir: strings.TrimSpace(*customDataFlag)})
	if err != nil {
		// Non-fatal: built-in names still resolve.
		util.Linef("[WARN]", util.ColorYellow, "data files: %v", err)
		log.Printf("ids: %v", err)
	}

	if *decodeFlag != "" {
		if err := decodeOnce(os.Stdout, *decodeFlag, *jsonOutFlag != ""); err != nil {
			fatal("%v", err)
		}
		return
	}

	printLogo()

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	src, err := selectSource(ctx, sourceOptions{
		kind:       strings.ToLower(strings.TrimSpace(*sourceFlag)),
		input:      strings.TrimSpace(*inputFlag),
		serialDev:  strings.TrimSpace(*serialDevFlag),
		serialBaud: *serialBaudFlag,
		adapter:    strings.TrimSpace(*adapterFlag),
		duplicates: *duplicatesFlag,
		restartSvc: *restartBlueZSvc,
		exclude:    []string{strings.TrimSpace(*gpsDeviceFlag)},
	})
	if err != nil {
		fatal("%v", err)
	}
	// Prompts would compete with payloads for stdin.
	interactive := src.Name() != "hex:stdin"

	// GPS selection.
	useGPS := false
	mode := strings.ToLower(strings.TrimSpace(*gpsModeFlag))
	switch {
	case mode == "off":
	case *useGPSFlag != "":
		useGPS = strings.EqualFold(*useGPSFlag, "y")
	case interactive:
		s, err := util.PromptString("Use GPS? (y/n): ")
		useGPS = err == nil && strings.EqualFold(s, "y")
	}

	gpsState := gps.NewState(useGPS, 30*time.Second)
	defer gpsState.Stop()
	if useGPS {
		cfg := gps.Config{
			Mode:       mode,
			GPSDAddr:   strings.TrimSpace(*gpsdAddrFlag),
			SerialDev:  strings.TrimSpace(*gpsDeviceFlag),
			SerialBaud: *gpsBaudFlag,
		}
		if ss, ok := src.(*capture.SerialSource); ok {
			cfg.Exclude = append(cfg.Exclude, ss.Device)
		}
		if cfg.Mode == "serial" && cfg.SerialDev == "" && interactive {
			cfg.SerialDev = promptSerialPort("Select the GPS serial port:", cfg.Exclude)
		}
		if err := gpsState.Start(ctx, cfg); err != nil {
			fatal("failed to start GPS reader: %v", err)
		}
		util.Line("[GPS]", util.ColorGray, "GPS reader started")
	}

	var store *db.Store
	var sessionID int64
	if path := strings.TrimSpace(*dbFlag); path != "" {
		store, err = db.Open(path)
		if err != nil {
			fatal("failed to open database: %v", err)
		}
		defer store.Close()

		var tagPtr *string
		if t := strings.TrimSpace(*tagFlag); t != "" {
			tagPtr = &t
		}
		var gpsStart *string
		if l := gpsState.Label(); l != "" {
			gpsStart = &l
		}
		sessionID, err = store.CreateSession(ctx, src.Name(), tagPtr, gpsStart)
		if err != nil {
			fatal("failed to create capture session: %v", err)
		}
		util.Linef("[SESSION]", util.ColorGray, "id=%d source=%s db=%s", sessionID, src.Name(), path)
	}

	opts := []sniffer.Option{sniffer.WithGPS(gpsState), sniffer.WithResolver(resolver)}
	if store != nil {
		opts = append(opts, sniffer.WithStore(store))
	}
	if w, closeFn, err := openJSONOut(*jsonOutFlag); err != nil {
		fatal("json output: %v", err)
	} else if w != nil {
		defer closeFn()
		opts = append(opts, sniffer.WithJSONOutput(w))
	}

	sn := sniffer.New(sniffer.Config{
		Workers:      *workersFlag,
		Cooldown:     *cooldownFlag,
		Verbose:      *verboseFlag,
		RemoteIDOnly: *ridOnlyFlag,
		SessionID:    sessionID,
	}, opts...)

	if *statsInterval > 0 {
		go status.Run(ctx, time.Duration(*statsInterval)*time.Second, status.Provider{GPS: gpsState, Store: store, Sniffer: sn})
	}

	err = sn.Run(ctx, src)
	st := sn.Stats()
	util.Linef("[EXIT]", util.ColorGray, "frames=%d records=%d malformed=%d remote_id=%d drones=%d",
		st.Frames, st.Records, st.Malformed, st.RemoteID, st.Drones)
	if err != nil && ctx.Err() == nil {
		fatal("capture stopped: %v", err)
	}
}

func fatal(format string, args ...any) {
	util.Linef("[ERROR]", util.ColorYellow, format, args...)
	log.Printf("fatal: "+format, args...)
	os.Exit(1)
}

// decodeOnce prints the records of one hex payload.
func decodeOnce(w io.Writer, hexStr string, asJSON bool) error {
	f, err := capture.ParseLine(hexStr)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	recs := advdata.Decode(f.Payload)
	if asJSON {
		b, err := advdata.MarshalRecords(recs)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "no AD structures")
		return err
	}
	for _, r := range recs {
		if _, err := fmt.Fprintf(w, "[0x%02X] %s\n", r.TypeCode(), r); err != nil {
			return err
		}
	}
	return nil
}

type sourceOptions struct {
	kind       string
	input      string
	serialDev  string
	serialBaud int
	adapter    string
	duplicates bool
	restartSvc bool
	exclude    []string
}

var sourceKinds = []string{"adapter", "bluez", "serial", "hex"}

func selectSource(ctx context.Context, o sourceOptions) (capture.Source, error) {
	if o.kind == "" {
		k, err := util.PromptChoice("Capture source:", sourceKinds)
		if err != nil {
			return nil, err
		}
		o.kind = k
	}

	switch o.kind {
	case "hex":
		if o.input == "" || o.input == "-" {
			return &capture.HexSource{Label: "stdin", R: os.Stdin}, nil
		}
		f, err := os.Open(o.input)
		if err != nil {
			return nil, err
		}
		// The file stays open for the life of the process.
		return &capture.HexSource{Label: o.input, R: f}, nil
	case "serial":
		dev := o.serialDev
		if dev == "" {
			dev = promptSerialPort("Select the sniffer serial port:", o.exclude)
		}
		return &capture.SerialSource{Device: dev, Baud: o.serialBaud, Exclude: o.exclude}, nil
	case "adapter", "bluez":
		id, err := selectAdapter(ctx, o.adapter, o.restartSvc)
		if err != nil {
			return nil, err
		}
		if o.kind == "adapter" {
			return &capture.AdapterSource{AdapterID: id}, nil
		}
		return &capture.BlueZSource{AdapterID: id, Duplicates: o.duplicates}, nil
	default:
		return nil, fmt.Errorf("invalid source %q (expected %s)", o.kind, strings.Join(sourceKinds, "|"))
	}
}

func selectAdapter(ctx context.Context, want string, restartSvc bool) (string, error) {
	adapters, err := capture.ListAdapters(ctx)
	if (err != nil || len(adapters) == 0) && restartSvc {
		if restarted, rerr := util.EnsureService(ctx, "bluetooth"); restarted {
			util.Line("[PREFLIGHT]", util.ColorGray, "bluetooth service inactive -> restarted")
			if rerr != nil {
				log.Printf("preflight: restart bluetooth: %v", rerr)
			}
			time.Sleep(1500 * time.Millisecond)
			adapters, err = capture.ListAdapters(ctx)
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to list Bluetooth adapters: %w", err)
	}
	if len(adapters) == 0 {
		return "", errors.New("no Bluetooth adapters found")
	}

	if want != "" {
		for _, a := range adapters {
			if a.ID == want {
				return want, nil
			}
		}
		return "", fmt.Errorf("unknown adapter: %s", want)
	}
	if len(adapters) == 1 {
		return adapters[0].ID, nil
	}
	labels := make([]string, 0, len(adapters))
	for _, a := range adapters {
		labels = append(labels, fmt.Sprintf("%s (%s)", a.ID, a.Address))
	}
	choice, err := util.PromptChoice("Available Bluetooth adapters:", labels)
	if err != nil {
		return "", err
	}
	id, _, _ := strings.Cut(choice, " ")
	return id, nil
}

func promptSerialPort(title string, exclude []string) string {
	ports, _ := serialport.ListPorts()
	labels := make([]string, 0, len(ports))
	for _, p := range ports {
		skip := false
		for _, e := range exclude {
			if e != "" && e == p.Name {
				skip = true
			}
		}
		if !skip {
			labels = append(labels, p.String())
		}
	}
	if len(labels) > 0 {
		if choice, err := util.PromptChoice(title, labels); err == nil {
			name, _, _ := strings.Cut(choice, " ")
			return name
		}
	}
	p, _ := util.PromptString("Enter serial device path (e.g., /dev/ttyACM0): ")
	return strings.TrimSpace(p)
}

func openJSONOut(path string) (io.Writer, func(), error) {
	switch strings.TrimSpace(path) {
	case "":
		return nil, func() {}, nil
	case "-":
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		// Drain a second signal so the shell does not block on it.
		select {
		case <-ch:
		default:
		}
	}()
	return ctx, cancel
}

func printLogo() {
	util.Line("", "", "blesniff: BLE advertisement and Remote ID decoder")
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"RelayScope/internal/api"
	"RelayScope/internal/config"

	"github.com/gdamore/tcell/v2"
)

// rs-top is a read-only terminal viewer over a running rs-monitor's status
// API. It holds no monitoring logic of its own: everything shown is fetched
// from /api/v1.

var defaultColors = map[string]tcell.Color{
	"INBOUND":   tcell.ColorGreen,
	"OUTBOUND":  tcell.ColorBlue,
	"EXIT":      tcell.ColorRed,
	"HIDDEN":    tcell.ColorDarkMagenta,
	"SOCKS":     tcell.ColorYellow,
	"CIRCUIT":   tcell.ColorTeal,
	"DIRECTORY": tcell.ColorAqua,
	"CONTROL":   tcell.ColorFuchsia,
}

var colorNames = map[string]tcell.Color{
	"red":     tcell.ColorRed,
	"green":   tcell.ColorGreen,
	"blue":    tcell.ColorBlue,
	"yellow":  tcell.ColorYellow,
	"cyan":    tcell.ColorAqua,
	"magenta": tcell.ColorFuchsia,
	"white":   tcell.ColorWhite,
}

type usageView struct {
	ClientLocales map[string]int `json:"client_locales"`
	ExitPorts     map[string]int `json:"exit_ports"`
}

type view struct {
	lines   []api.LineView
	usage   usageView
	fetched time.Time
	lastErr string
}

func main() {
	apiAddr := flag.String("api", "http://127.0.0.1:8650", "base URL of the rs-monitor status API")
	interval := flag.Duration("interval", 2*time.Second, "refresh interval")
	configPath := flag.String("config", "", "optional config file for category colors")
	flag.Parse()

	colors := make(map[string]tcell.Color, len(defaultColors))
	for category, color := range defaultColors {
		colors[category] = color
	}
	if *configPath != "" {
		cfg, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		for category, name := range cfg.Monitor.CategoryColors {
			if color, ok := colorNames[name]; ok {
				colors[category] = color
			}
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("Failed to create screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("Failed to init screen: %v", err)
	}
	defer screen.Fini()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			events <- screen.PollEvent()
		}
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	current := refresh(client, *apiAddr)
	scroll := 0
	showUsage := false

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		draw(screen, current, colors, scroll, showUsage)
		screen.Show()

		select {
		case ev := <-events:
			switch tev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				switch {
				case tev.Rune() == 'q' || tev.Key() == tcell.KeyEscape:
					return
				case tev.Rune() == 'u':
					showUsage = !showUsage
				case tev.Key() == tcell.KeyUp:
					if scroll > 0 {
						scroll--
					}
				case tev.Key() == tcell.KeyDown:
					if scroll < len(current.lines)-1 {
						scroll++
					}
				}
			}
		case <-ticker.C:
			current = refresh(client, *apiAddr)
			if scroll >= len(current.lines) {
				scroll = 0
			}
		}
	}
}

func refresh(client *http.Client, base string) view {
	v := view{fetched: time.Now()}

	if err := fetchJSON(client, base+"/api/v1/lines", &v.lines); err != nil {
		v.lastErr = err.Error()
		return v
	}
	if err := fetchJSON(client, base+"/api/v1/usage", &v.usage); err != nil {
		v.lastErr = err.Error()
	}
	return v
}

func fetchJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func draw(screen tcell.Screen, v view, colors map[string]tcell.Color, scroll int, showUsage bool) {
	screen.Clear()
	width, height := screen.Size()

	title := fmt.Sprintf("RelayScope  %d lines  updated %s", len(v.lines), v.fetched.Format("15:04:05"))
	putString(screen, 0, 0, truncate(title, width), tcell.StyleDefault.Bold(true))
	putString(screen, 0, 1, truncate("UP/DOWN scroll | u usage summary | q quit", width), tcell.StyleDefault)

	if v.lastErr != "" {
		putString(screen, 0, 2, truncate("Status: "+v.lastErr, width), tcell.StyleDefault.Foreground(tcell.ColorRed))
	}

	y := 4
	if showUsage {
		y = drawUsage(screen, v.usage, width, y)
	}

	for i := scroll; i < len(v.lines) && y < height; i++ {
		line := v.lines[i]
		style := tcell.StyleDefault
		if color, ok := colors[line.Category]; ok {
			style = style.Foreground(color)
		}
		putString(screen, 0, y, truncate(formatLine(line), width), style)
		y++
	}
}

func drawUsage(screen tcell.Screen, u usageView, width, y int) int {
	putString(screen, 0, y, truncate(fmt.Sprintf("Client locales: %v", u.ClientLocales), width), tcell.StyleDefault)
	putString(screen, 0, y+1, truncate(fmt.Sprintf("Exiting ports:  %v", u.ExitPorts), width), tcell.StyleDefault)
	return y + 3
}

func formatLine(line api.LineView) string {
	switch line.Kind {
	case "CIRCUIT_HEADER":
		return fmt.Sprintf("  Circuit %s  purpose: %s  status: %s", line.CircuitID, line.Purpose, line.Status)
	case "CIRCUIT_HOP":
		nickname := line.Nickname
		if nickname == "" {
			nickname = "UNKNOWN"
		}
		return fmt.Sprintf("   |  %s:%d  %s  (%s)", line.RemoteAddress, line.RemotePort, nickname, line.Placement)
	}

	src := fmt.Sprintf("%s:%d", line.LocalAddress, line.LocalPort)
	dst := fmt.Sprintf("%s:%d", line.RemoteAddress, line.RemotePort)
	if line.Locale != "" {
		dst += " (" + line.Locale + ")"
	}

	details := line.Fingerprint
	if details == "" {
		details = "UNKNOWN"
	}
	return fmt.Sprintf("%-21s --> %-28s %-42s %5s (%s)", src, dst, details, line.Uptime, line.Category)
}

func putString(screen tcell.Screen, x, y int, s string, style tcell.Style) {
	for i, r := range s {
		screen.SetContent(x+i, y, r, nil, style)
	}
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}

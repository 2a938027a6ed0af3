// mvision-watch - prints live detections from a running mvision dashboard
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/teslashibe/go-mvision/internal/httpc"
	"github.com/teslashibe/go-mvision/pkg/api"
	"github.com/teslashibe/go-mvision/pkg/detection"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "mvision dashboard host:port")
	preset := flag.String("preset", "", "Apply a camera preset before watching (default, lowlight, fast, manual)")
	control := flag.String("control", "", "Pause or resume the pipeline before watching (pause, resume)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *addr, *preset, *control); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// controlPath maps a -control value to its route.
func controlPath(control string) (string, error) {
	switch control {
	case "pause":
		return api.PathPause, nil
	case "resume":
		return api.PathResume, nil
	}
	return "", fmt.Errorf("unknown control %q (want pause or resume)", control)
}

func run(ctx context.Context, addr, preset, control string) error {
	base := "http://" + addr

	var status api.Status
	if err := httpc.GetJSON(ctx, base+api.PathStatus, &status); err != nil {
		return fmt.Errorf("fetch status: %w", err)
	}
	fmt.Printf("📊 %d frames, %.1f fps, up %s, paused=%v\n", status.Frames, status.FPS, status.Uptime, status.Paused)

	var labels detection.LabelTable
	if err := httpc.GetJSON(ctx, base+api.PathLabels, &labels); err != nil {
		return fmt.Errorf("fetch labels: %w", err)
	}
	fmt.Printf("🏷️  %d labels\n", labels.Len())

	if control != "" {
		path, err := controlPath(control)
		if err != nil {
			return err
		}
		var ps api.PauseState
		if err := httpc.PostJSON(ctx, base+path, nil, &ps); err != nil {
			return fmt.Errorf("%s: %w", control, err)
		}
		fmt.Printf("⏯️  paused=%v\n", ps.Paused)
	}

	if preset != "" {
		var state api.CameraState
		if err := httpc.PutJSON(ctx, base+api.PathCamera, map[string]string{"preset": preset}, &state); err != nil {
			return fmt.Errorf("apply preset: %w", err)
		}
		fmt.Printf("📷 preset %s: exposure %s %.0fµs, gain %s, %.1f fps\n", preset,
			state.Params.ExposureMode, state.Params.ExposureTime, state.Params.GainMode, state.Params.FrameRate)
	}

	u := url.URL{Scheme: "ws", Host: addr, Path: api.PathDetectionsWS}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", u.String(), err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	fmt.Printf("🔌 Watching %s (Ctrl+C to stop)\n", u.String())
	for {
		var d api.Detections
		if err := conn.ReadJSON(&d); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		fmt.Fprintln(os.Stdout, formatDetections(d, labels))
	}
}

// formatDetections renders one frame of detections as a table.
func formatDetections(d api.Detections, labels detection.LabelTable) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("frame %d  %dx%d  %.1f ms", d.Seq, d.Width, d.Height, d.InferenceMS))
	t.AppendHeader(table.Row{"#", "Class", "Confidence", "X", "Y", "Width", "Height"})
	for i, b := range d.Boxes {
		name, ok := labels.Lookup(b.Class)
		if !ok {
			name = fmt.Sprintf("<%d>", b.Class)
		}
		t.AppendRow(table.Row{i, name, fmt.Sprintf("%.3f", b.Confidence), b.X, b.Y, b.Width, b.Height})
	}
	t.AppendFooter(table.Row{"", "total", len(d.Boxes)})
	return t.Render()
}

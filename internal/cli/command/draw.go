package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/boardmesh-go/internal/cli/repl"
	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/protocol"
	"github.com/yndnr/boardmesh-go/internal/tools"
)

var drawCommands = []repl.Command{
	{Name: "rect", Usage: "rect X1 Y1 X2 Y2", Help: "draw a rectangle"},
	{Name: "line", Usage: "line X Y X Y [X Y...]", Help: "draw a free-hand line through the points"},
	{Name: "erase", Usage: "erase ID...", Help: "delete elements"},
	{Name: "move", Usage: "move ID DX DY", Help: "translate an element"},
	{Name: "color", Usage: "color #RRGGBB", Help: "set the drawing color"},
	{Name: "size", Usage: "size N", Help: "set the stroke width"},
	{Name: "list", Usage: "list", Help: "list the elements of the board"},
}

// DrawCommand returns the draw command. With a drawing command after the
// board name it runs that command and leaves; otherwise it opens a prompt.
func DrawCommand() *cli.Command {
	return &cli.Command{
		Name:      "draw",
		Usage:     "Draw on a board",
		ArgsUsage: "BOARD [rect|line|erase|move|list ARGS...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "color",
				Usage: "Initial drawing color",
				Value: tools.DefaultStyle().Color,
			},
			&cli.Float64Flag{
				Name:  "size",
				Usage: "Initial stroke width",
				Value: tools.DefaultStyle().Size,
			},
			&cli.StringFlag{
				Name:  "history",
				Usage: "Prompt history file",
				Value: repl.DefaultHistoryFile(),
			},
		},
		Action: drawAction,
	}
}

func drawAction(c *cli.Context) error {
	board := c.Args().First()
	lb, err := openBoard(c, board, nil)
	if err != nil {
		return err
	}
	defer lb.close()

	ctx := context.Background()
	if err := lb.waitJoined(ctx); err != nil {
		return err
	}

	d := &drawSession{
		board: lb,
		out:   stdout(c),
		list:  func(data any) error { return printResult(c, data) },
		style: tools.DefaultStyle(),
	}
	if err := d.setColor(c.String("color")); err != nil {
		return err
	}
	if err := d.setSize(c.String("size")); err != nil {
		return err
	}

	if args := c.Args().Tail(); len(args) > 0 {
		return d.exec(ctx, args)
	}

	var in io.Reader = os.Stdin
	if c.App.Reader != nil {
		in = c.App.Reader
	}
	r := repl.New(repl.Config{
		Input:       in,
		Output:      d.out,
		Prompt:      board + "> ",
		Exec:        d.exec,
		Commands:    drawCommands,
		HistoryFile: c.String("history"),
	})
	return r.Run(ctx)
}

// drawSession turns prompt commands into tool input.
type drawSession struct {
	board *liveBoard
	out   io.Writer
	list  func(data any) error
	style tools.Style
	// clock spaces synthetic input so no point is throttled away.
	clock time.Time
}

func (d *drawSession) exec(_ context.Context, args []string) error {
	switch args[0] {
	case "rect":
		return d.rect(args[1:])
	case "line":
		return d.line(args[1:])
	case "erase":
		return d.erase(args[1:])
	case "move":
		return d.move(args[1:])
	case "color":
		if len(args) != 2 {
			return fmt.Errorf("usage: color #RRGGBB")
		}
		return d.setColor(args[1])
	case "size":
		if len(args) != 2 {
			return fmt.Errorf("usage: size N")
		}
		return d.setSize(args[1])
	case "list":
		return d.list(elementRows(d.board.canvas.All()))
	}
	return fmt.Errorf("unknown command %q (try help)", args[0])
}

// tick returns the time of the next synthetic input event.
func (d *drawSession) tick() time.Time {
	now := time.Now()
	if next := d.clock.Add(tools.ShapeUpdateInterval); now.Before(next) {
		now = next
	}
	d.clock = now
	return now
}

func (d *drawSession) input(x, y float64) protocol.Input {
	return protocol.Input{X: x, Y: y, Time: d.tick()}
}

func (d *drawSession) rect(args []string) error {
	v, err := parseFloats(args)
	if err != nil || len(v) != 4 {
		return fmt.Errorf("usage: rect X1 Y1 X2 Y2")
	}
	r := d.board.tools.Rect
	if err := r.Press(d.input(v[0], v[1])); err != nil {
		return err
	}
	id := r.Current()
	if err := r.Release(d.input(v[2], v[3])); err != nil {
		return err
	}
	fmt.Fprintln(d.out, id)
	return nil
}

func (d *drawSession) line(args []string) error {
	v, err := parseFloats(args)
	if err != nil || len(v) < 4 || len(v)%2 != 0 {
		return fmt.Errorf("usage: line X Y X Y [X Y...]")
	}
	p := d.board.tools.Pencil
	if err := p.Press(d.input(v[0], v[1])); err != nil {
		return err
	}
	id := p.CurrentLine()
	last := len(v) - 2
	for i := 2; i < last; i += 2 {
		if err := p.Move(d.input(v[i], v[i+1])); err != nil {
			return err
		}
	}
	if err := p.Release(d.input(v[last], v[last+1])); err != nil {
		return err
	}
	fmt.Fprintln(d.out, id)
	return nil
}

func (d *drawSession) erase(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("usage: erase ID...")
	}
	e := d.board.tools.Eraser
	for _, id := range ids {
		if _, ok := d.board.canvas.Get(id); !ok {
			return domain.ErrElementNotFound.WithDetails(id)
		}
		in := d.input(0, 0)
		in.Target = id
		if err := e.Press(in); err != nil {
			return err
		}
		if err := e.Release(in); err != nil {
			return err
		}
	}
	return nil
}

func (d *drawSession) move(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: move ID DX DY")
	}
	v, err := parseFloats(args[1:])
	if err != nil {
		return fmt.Errorf("usage: move ID DX DY")
	}
	id := args[0]
	if _, ok := d.board.canvas.Get(id); !ok {
		return domain.ErrElementNotFound.WithDetails(id)
	}
	h := d.board.tools.Hand
	press := d.input(0, 0)
	press.Target = id
	if err := h.Press(press); err != nil {
		return err
	}
	return h.Release(d.input(v[0], v[1]))
}

func (d *drawSession) setColor(color string) error {
	if !validColor(color) {
		return fmt.Errorf("invalid color %q, want #RRGGBB", color)
	}
	d.style.Color = color
	d.applyStyle()
	return nil
}

func (d *drawSession) setSize(s string) error {
	size, err := strconv.ParseFloat(s, 64)
	if err != nil || size <= 0 || size > domain.MaxSize {
		return fmt.Errorf("invalid size %q, want 0 < N <= %g", s, float64(domain.MaxSize))
	}
	d.style.Size = size
	d.applyStyle()
	return nil
}

func (d *drawSession) applyStyle() {
	d.board.tools.Pencil.SetStyle(d.style)
	d.board.tools.Rect.SetStyle(d.style)
}

func validColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	_, err := strconv.ParseUint(s[1:], 16, 32)
	return err == nil
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, 0, len(args))
	for _, a := range args {
		f, err := strconv.ParseFloat(strings.TrimSuffix(a, ","), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

type elementRow struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	Tool   string  `json:"tool"`
	Color  string  `json:"color"`
	Points int     `json:"points"`
	DeltaX float64 `json:"deltax" table:"wide"`
	DeltaY float64 `json:"deltay" table:"wide"`
}

func elementRows(elements []*domain.Element) []elementRow {
	rows := make([]elementRow, 0, len(elements))
	for _, e := range elements {
		rows = append(rows, elementRow{
			ID:     e.ID,
			Type:   e.Type,
			Tool:   e.Tool,
			Color:  e.Color,
			Points: len(e.Children),
			DeltaX: e.DeltaX.Float(0),
			DeltaY: e.DeltaY.Float(0),
		})
	}
	return rows
}

package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/orbview/satgrid/internal/render"
)

// Op identifies a wire command.
type Op int

const (
	// OpSetPixel paints one pixel: "1,x,y,R,G,B".
	OpSetPixel Op = 1
	// OpClear resets the display to the background: "2".
	OpClear Op = 2
	// OpQueryDimensions asks the device for its size. It is sent as a
	// bare "3" with no terminator; the device replies "width,height\n".
	OpQueryDimensions Op = 3
)

// Command is one decoded display instruction. X, Y, and Color are only
// meaningful for OpSetPixel.
type Command struct {
	Op    Op
	X     int
	Y     int
	Color render.Color
}

// Encoded commands carry no newline terminator; the serial layer frames
// them. The dimension query stays bare on the wire since the device
// recognizes it by its leading byte without waiting for a newline.

// EncodeSetPixel returns the wire form of a set-pixel command.
func EncodeSetPixel(x, y int, c render.Color) string {
	return fmt.Sprintf("1,%d,%d,%d,%d,%d", x, y, c.R, c.G, c.B)
}

// EncodeClear returns the wire form of a clear command.
func EncodeClear() string { return "2" }

// EncodeDimensionQuery returns the wire form of a dimension query.
func EncodeDimensionQuery() string { return "3" }

// EncodeDimensionReply returns the reply a device sends to a dimension
// query, newline included.
func EncodeDimensionReply(w, h int) string {
	return fmt.Sprintf("%d,%d\n", w, h)
}

// Encode returns the canonical wire form of the command.
func (c Command) Encode() string {
	switch c.Op {
	case OpSetPixel:
		return EncodeSetPixel(c.X, c.Y, c.Color)
	case OpClear:
		return EncodeClear()
	case OpQueryDimensions:
		return EncodeDimensionQuery()
	}
	return ""
}

// DecodeCommand parses one newline-stripped command line. Malformed input
// returns an error and must leave the receiving display untouched.
// Out-of-range coordinates are not malformed; devices clip them at apply
// time so hosts can target displays of any size.
func DecodeCommand(line string) (Command, error) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return Command{}, fmt.Errorf("empty command")
	}

	fields := strings.Split(line, ",")
	switch fields[0] {
	case "1":
		if len(fields) != 6 {
			return Command{}, fmt.Errorf("set pixel: expected 6 fields, got %d", len(fields))
		}
		x, err := strconv.Atoi(fields[1])
		if err != nil {
			return Command{}, fmt.Errorf("set pixel: invalid x %q", fields[1])
		}
		y, err := strconv.Atoi(fields[2])
		if err != nil {
			return Command{}, fmt.Errorf("set pixel: invalid y %q", fields[2])
		}
		var channels [3]uint8
		for i, field := range fields[3:6] {
			v, err := strconv.Atoi(field)
			if err != nil || v < 0 || v > 255 {
				return Command{}, fmt.Errorf("set pixel: channel %q outside 0-255", field)
			}
			channels[i] = uint8(v)
		}
		return Command{
			Op:    OpSetPixel,
			X:     x,
			Y:     y,
			Color: render.Color{R: channels[0], G: channels[1], B: channels[2]},
		}, nil
	case "2":
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("clear: unexpected arguments in %q", line)
		}
		return Command{Op: OpClear}, nil
	case "3":
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("dimension query: unexpected arguments in %q", line)
		}
		return Command{Op: OpQueryDimensions}, nil
	default:
		return Command{}, fmt.Errorf("unknown op %q", fields[0])
	}
}

// ParseDimensionReply parses a "width,height" reply line.
func ParseDimensionReply(line string) (w, h int, err error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("dimension reply: expected 2 fields, got %d", len(fields))
	}
	w, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("dimension reply: invalid width %q", fields[0])
	}
	h, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("dimension reply: invalid height %q", fields[1])
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("dimension reply: non-positive size %dx%d", w, h)
	}
	return w, h, nil
}

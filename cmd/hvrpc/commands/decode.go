package commands

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/marmos91/hvrpc/internal/logger"
	"github.com/marmos91/hvrpc/internal/telemetry"
	"github.com/marmos91/hvrpc/pkg/wire"
)

var (
	decodeHexdump   bool
	decodeMaxFrames int
)

var decodeCmd = &cobra.Command{
	Use:   "decode <capture-file>",
	Short: "Decode the frames in a capture file",
	Long: `Decode iterates the concatenated frames in a capture file and prints one
line per frame: serial, message type, program, procedure, status and
payload length. Use "-" to read from stdin.

A trailing partial frame is reported and skipped, not treated as fatal,
so captures truncated mid-frame still decode up to the cut.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().BoolVar(&decodeHexdump, "hexdump", false, "dump payload bytes of every frame")
	decodeCmd.Flags().IntVar(&decodeMaxFrames, "max-frames", 0, "stop after this many frames (0 = no limit)")
}

func runDecode(cmd *cobra.Command, args []string) error {
	path := args[0]

	if decodeHexdump {
		cfg.Decode.Hexdump = true
	}
	if decodeMaxFrames > 0 {
		cfg.Decode.MaxFrames = decodeMaxFrames
	}

	shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	var in io.Reader
	if path == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open capture: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	lc := logger.NewLogContext(path)
	ctx := logger.WithContext(cmd.Context(), lc)
	logger.InfoCtx(ctx, "decode session started", logger.Path(path))

	frames, err := decodeStream(ctx, bufio.NewReader(in), cmd.OutOrStdout())
	if err != nil {
		logger.ErrorCtx(ctx, "decode session failed", logger.FrameIndex(frames), logger.Err(err))
	}
	logger.InfoCtx(ctx, "decode session finished",
		logger.FrameIndex(frames),
		logger.DurationMs(lc.DurationMs()))
	return err
}

// decodeStream runs the inbound half of the codec over every frame in
// r, printing a summary line per frame to out. It returns the number
// of frames decoded.
func decodeStream(ctx context.Context, r io.Reader, out io.Writer) (int, error) {
	frames := 0
	msg := wire.NewMessage(false)
	for {
		if cfg.Decode.MaxFrames > 0 && frames >= cfg.Decode.MaxFrames {
			logger.InfoCtx(ctx, "frame limit reached", logger.FrameIndex(frames))
			return frames, nil
		}

		msg.Clear()
		msg.PrepareDecode()
		if _, err := io.ReadFull(r, msg.Buffer()); err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				logger.WarnCtx(ctx, "capture ends inside a length prefix", logger.FrameIndex(frames))
				return frames, nil
			}
			return frames, fmt.Errorf("failed to read length prefix: %w", err)
		}

		// Reader-side guard: skip frames the configuration does not
		// want to materialise, before any allocation happens.
		declared := binary.BigEndian.Uint32(msg.Buffer())
		if uint64(declared) > cfg.Decode.MaxFrameSize.Bytes() {
			logger.WarnCtx(ctx, "skipping frame above configured maximum",
				logger.FrameLen(int(declared)),
				logger.FrameIndex(frames))
			if _, err := io.CopyN(io.Discard, r, int64(declared)-wire.LenSize); err != nil {
				return frames, fmt.Errorf("failed to skip oversized frame: %w", err)
			}
			continue
		}

		fctx, span := telemetry.StartSpan(ctx, "hvrpc.decode.frame")
		err := decodeFrame(fctx, msg, r)
		if err != nil {
			telemetry.RecordError(fctx, err)
			span.End()
			if errors.Is(err, io.ErrUnexpectedEOF) {
				logger.WarnCtx(ctx, "capture ends inside a frame", logger.FrameIndex(frames))
				return frames, nil
			}
			return frames, err
		}
		telemetry.SetAttributes(fctx,
			attribute.Int64("rpc.serial", int64(msg.Header.Serial)),
			attribute.String("rpc.msg_type", msg.Header.Type.String()),
		)
		span.End()

		printFrame(out, frames, msg)
		frames++
	}
}

// withFDs reports whether the message type carries a descriptor count
// on the wire.
func withFDs(t wire.Type) bool {
	return t == wire.TypeCallWithFDs || t == wire.TypeReplyWithFDs
}

// decodeFrame completes one frame after its length prefix has been
// read: grow, read the remainder, parse the header, and parse the
// descriptor count for message types that carry one.
func decodeFrame(ctx context.Context, msg *wire.Message, r io.Reader) error {
	if err := msg.DecodeLength(); err != nil {
		return fmt.Errorf("bad frame length: %w", err)
	}
	if _, err := io.ReadFull(r, msg.Buffer()[wire.LenSize:]); err != nil {
		return fmt.Errorf("failed to read frame body: %w", err)
	}
	if err := msg.DecodeHeader(); err != nil {
		return fmt.Errorf("bad frame header: %w", err)
	}
	if withFDs(msg.Header.Type) {
		if _, err := msg.DecodeNumFDs(); err != nil {
			return fmt.Errorf("bad descriptor count: %w", err)
		}
	}

	logger.DebugCtx(ctx, "frame decoded",
		logger.Serial(msg.Header.Serial),
		logger.MsgType(msg.Header.Type.String()),
		logger.Status(msg.Header.Status.String()),
		logger.Program(msg.Header.Program),
		logger.Procedure(msg.Header.Procedure),
		logger.FrameLen(msg.Len()),
		logger.PayloadLen(len(msg.PayloadBytes())),
		logger.NumFDs(msg.NumFDs()))
	return nil
}

// printFrame writes the one-line summary (and optional hexdump) for a
// decoded frame.
func printFrame(out io.Writer, index int, msg *wire.Message) {
	payload := msg.PayloadBytes()
	fmt.Fprintf(out, "#%-5d serial=%-8d type=%-14s program=0x%08x version=%d procedure=%-5d status=%-8s len=%-8d payload=%d",
		index,
		msg.Header.Serial,
		msg.Header.Type,
		msg.Header.Program,
		msg.Header.Version,
		msg.Header.Procedure,
		msg.Header.Status,
		msg.Len(),
		len(payload))
	if withFDs(msg.Header.Type) {
		fmt.Fprintf(out, " nfds=%d", msg.NumFDs())
	}
	fmt.Fprintln(out)

	if cfg.Decode.Hexdump && len(payload) > 0 {
		fmt.Fprint(out, hex.Dump(payload))
	}
}

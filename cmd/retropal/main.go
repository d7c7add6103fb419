package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/retropal"
	"github.com/bodgit/retropal/colour"
	"github.com/bodgit/retropal/indexed"
	"github.com/bodgit/retropal/pal"
	"github.com/bodgit/retropal/pixel"
	"github.com/disintegration/gift"
	"github.com/dustin/go-humanize"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/makeworld-the-better-one/dither/v2"
	"github.com/nfnt/resize"
	"github.com/urfave/cli/v2"
)

const defaultDB = "retropal.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func profileFlag(c *cli.Context) (retropal.Profile, error) {
	name := c.String("profile")
	p, ok := retropal.ProfileByName(name)
	if !ok {
		return retropal.Profile{}, fmt.Errorf("unknown profile \"%s\"", name)
	}
	return p, nil
}

func scaleFlag(c *cli.Context) (retropal.ScaleMode, error) {
	switch name := c.String("scale"); name {
	case "", "nearest":
		return retropal.ScaleNearest, nil
	case "bilinear":
		return retropal.ScaleBilinear, nil
	case "bicubic":
		return retropal.ScaleBicubic, nil
	case "lanczos":
		return retropal.ScaleLanczos, nil
	default:
		return retropal.ScaleNearest, fmt.Errorf("unknown scale mode \"%s\"", name)
	}
}

func interpolation(mode retropal.ScaleMode) resize.InterpolationFunction {
	switch mode {
	case retropal.ScaleBilinear:
		return resize.Bilinear
	case retropal.ScaleBicubic:
		return resize.Bicubic
	case retropal.ScaleLanczos:
		return resize.Lanczos3
	}
	return resize.NearestNeighbor
}

func preprocess(c *cli.Context, buf *pixel.Buffer) *pixel.Buffer {
	var filters []gift.Filter
	if c.Bool("grayscale") {
		filters = append(filters, gift.Grayscale())
	}
	if v := c.Float64("contrast"); v != 0 {
		filters = append(filters, gift.Contrast(float32(v)))
	}
	if v := c.Float64("blur"); v > 0 {
		filters = append(filters, gift.GaussianBlur(float32(v)))
	}
	if len(filters) == 0 {
		return buf
	}

	g := gift.New(filters...)
	src := buf.Image()
	dst := image.NewNRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return pixel.FromImage(dst)
}

func medianCutPalette(buf *pixel.Buffer, colors int) []colour.Color {
	q := quantize.MedianCutQuantizer{}
	p := q.Quantize(make(color.Palette, 0, colors), buf.Image())

	out := make([]colour.Color, 0, len(p))
	for _, c := range p {
		nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
		out = append(out, colour.New(nrgba.R, nrgba.G, nrgba.B))
	}
	return out
}

// ditherImage spreads quantization error from the source across the target
// palette. Fully transparent pixels keep their original bytes afterwards.
func ditherImage(mode string, buf *pixel.Buffer, palette []colour.Color) (*pixel.Buffer, error) {
	p := make([]color.Color, 0, len(palette))
	for _, c := range palette {
		p = append(p, c.NRGBA())
	}

	d := dither.NewDitherer(p)
	switch mode {
	case "floyd":
		d.Matrix = dither.FloydSteinberg
	case "bayer4":
		d.Mapper = dither.Bayer(4, 4, 1.0)
	case "bayer8":
		d.Mapper = dither.Bayer(8, 8, 1.0)
	default:
		return nil, fmt.Errorf("unknown dither mode \"%s\"", mode)
	}

	out := pixel.FromImage(d.Dither(buf.Image()))
	for i := 3; i < len(buf.Pix); i += 4 {
		out.Pix[i] = buf.Pix[i]
		if buf.Pix[i] == 0 {
			copy(out.Pix[i-3:i], buf.Pix[i-3:i])
		}
	}
	return out, nil
}

func readPalette(file string) (pal.Palette, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var p pal.Palette
	if bytes.HasPrefix(b, []byte("JASC-PAL")) {
		err = p.UnmarshalText(b)
	} else {
		err = p.UnmarshalBinary(b)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func writePalette(file string, p pal.Palette) error {
	var (
		b   []byte
		err error
	)
	if strings.EqualFold(filepath.Ext(file), ".pal") {
		b, err = p.MarshalBinary()
	} else {
		b, err = p.MarshalText()
	}
	if err != nil {
		return err
	}
	return os.WriteFile(file, b, 0644)
}

func outputName(file string, profile retropal.Profile, out string) string {
	if out != "" {
		return out
	}
	return strings.TrimSuffix(file, filepath.Ext(file)) + "." + profile.Name + ".png"
}

func main() {
	app := cli.NewApp()

	app.Name = "retropal"
	app.Usage = "Retro display hardware palette conversion utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"RETROPAL_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to palette cache database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "convert",
			Usage:       "Convert an image to a hardware palette",
			Description: "",
			ArgsUsage:   "FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "profile",
					Aliases: []string{"p"},
					Value:   "megadrive",
					Usage:   "target hardware profile",
				},
				&cli.StringFlag{
					Name:    "out",
					Aliases: []string{"o"},
					Usage:   "output file, defaults next to the input",
				},
				&cli.StringFlag{
					Name:  "palette",
					Usage: "read the ordered source palette from this file",
				},
				&cli.IntFlag{
					Name:  "width",
					Usage: "scale to this width, 0 keeps the aspect ratio",
				},
				&cli.IntFlag{
					Name:  "height",
					Usage: "scale to this height, 0 keeps the aspect ratio",
				},
				&cli.StringFlag{
					Name:  "scale",
					Value: "nearest",
					Usage: "scaling filter; nearest, bilinear, bicubic or lanczos",
				},
				&cli.BoolFlag{
					Name:  "grayscale",
					Usage: "convert to grayscale before quantizing",
				},
				&cli.Float64Flag{
					Name:  "contrast",
					Usage: "adjust contrast by -100 to 100 before quantizing",
				},
				&cli.Float64Flag{
					Name:  "blur",
					Usage: "apply a gaussian blur of this sigma before quantizing",
				},
				&cli.StringFlag{
					Name:  "dither",
					Usage: "dither onto the palette; floyd, bayer4 or bayer8",
				},
				&cli.BoolFlag{
					Name:  "mediancut",
					Usage: "derive the palette with median cut instead",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				logger := newLogger(c)

				file := c.Args().First()
				_, buf, err := retropal.DecodeFile(file)
				if err != nil {
					return cli.Exit(err, 1)
				}

				profile, err := profileFlag(c)
				if err != nil {
					return cli.Exit(err, 1)
				}

				scale, err := scaleFlag(c)
				if err != nil {
					return cli.Exit(err, 1)
				}

				buf = preprocess(c, buf)

				var source []colour.Color
				switch {
				case c.String("palette") != "":
					p, err := readPalette(c.String("palette"))
					if err != nil {
						return cli.Exit(err, 1)
					}
					source = p
				case c.Bool("mediancut") && len(profile.Fixed) == 0:
					source = medianCutPalette(buf, profile.TargetColors)
				}

				req := retropal.Request{
					Pixels:        buf,
					SourcePalette: source,
					Profile:       profile,
					Scale:         scale,
				}

				width, height := c.Int("width"), c.Int("height")
				mode := c.String("dither")

				if mode != "" && (width > 0 || height > 0) {
					// Dithering works on the resized source, so scale up front
					buf = pixel.FromImage(resize.Resize(uint(width), uint(height), buf.Image(), interpolation(scale)))
					req.Pixels = buf
				} else {
					req.TargetWidth, req.TargetHeight = width, height
				}

				engine := retropal.NewEngine(logger)
				res, err := engine.Process(req)
				if err != nil {
					return cli.Exit(err, 1)
				}

				pixels := res.Pixels
				if mode != "" {
					if pixels, err = ditherImage(mode, buf, res.Palette); err != nil {
						return cli.Exit(err, 1)
					}
				}

				b := new(bytes.Buffer)
				if err := indexed.Encode(b, pixels, indexed.Palette(res.Palette)); err != nil {
					return cli.Exit(err, 1)
				}

				target := outputName(file, profile, c.String("out"))
				if err := os.WriteFile(target, b.Bytes(), 0644); err != nil {
					return cli.Exit(err, 1)
				}

				logger.Printf("Wrote \"%s\" (%s, %d colors)\n", target, humanize.IBytes(uint64(b.Len())), len(res.Palette))

				return nil
			},
		},
		{
			Name:        "palette",
			Usage:       "Derive a palette from an image",
			Description: "",
			ArgsUsage:   "FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "profile",
					Aliases: []string{"p"},
					Value:   "megadrive",
					Usage:   "target hardware profile",
				},
				&cli.StringFlag{
					Name:    "out",
					Aliases: []string{"o"},
					Usage:   "write to this file instead of stdout",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				logger := newLogger(c)

				_, buf, err := retropal.DecodeFile(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}

				profile, err := profileFlag(c)
				if err != nil {
					return cli.Exit(err, 1)
				}

				engine := retropal.NewEngine(logger)
				res, err := engine.Process(retropal.Request{
					Pixels:  buf,
					Profile: profile,
				})
				if err != nil {
					return cli.Exit(err, 1)
				}

				if out := c.String("out"); out != "" {
					if err := writePalette(out, pal.Palette(res.Palette)); err != nil {
						return cli.Exit(err, 1)
					}
					return nil
				}

				b, err := pal.Palette(res.Palette).MarshalText()
				if err != nil {
					return cli.Exit(err, 1)
				}
				if _, err := os.Stdout.Write(b); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "scan",
			Usage:       "Scan filesystem and convert every image found",
			Description: "",
			ArgsUsage:   "DIRECTORY",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "profile",
					Aliases: []string{"p"},
					Value:   "megadrive",
					Usage:   "target hardware profile",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				logger := newLogger(c)

				profile, err := profileFlag(c)
				if err != nil {
					return cli.Exit(err, 1)
				}

				db, err := retropal.NewPaletteDB(c.String("db"))
				if err != nil {
					return cli.Exit(err, 1)
				}

				m := retropal.New(db, logger)
				defer m.Close()

				if err := m.Scan(c.Args().First(), profile); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "profiles",
			Usage:       "List the built-in hardware profiles",
			Description: "",
			Action: func(c *cli.Context) error {
				for _, p := range retropal.Profiles() {
					mode := p.Strategy.String()
					if len(p.Fixed) > 0 {
						mode = "fixed"
					}
					fmt.Printf("%-16s %3d colors  %-5s  %s\n", p.Name, p.TargetColors, p.Depth, mode)
				}
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

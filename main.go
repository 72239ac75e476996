package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/berylllium/industria/cmd"
	"github.com/urfave/cli"
)

func renderFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 800,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 600,
			Usage: "frame height",
		},
		cli.Float64Flag{
			Name:  "fov",
			Usage: "override the camera vertical field of view (degrees)",
		},
		cli.StringFlag{
			Name:  "position",
			Usage: "override the camera position (x,y,z)",
		},
		cli.StringFlag{
			Name:  "orientation",
			Usage: "override the camera orientation (yaw,pitch,roll in radians)",
		},
		cli.StringFlag{
			Name:  "background",
			Usage: "override the scene background color (r,g,b,a)",
		},
		cli.IntFlag{
			Name:  "tracers",
			Value: 1,
			Usage: "number of tracers that split the frame rows",
		},
		cli.IntFlag{
			Name:  "workers",
			Value: runtime.NumCPU(),
			Usage: "number of goroutines per tracer",
		},
		cli.BoolFlag{
			Name:  "debug-steps",
			Usage: "also record a heat map of the per-pixel traversal steps",
		},
	}
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "industria"
	app.Usage = "render sparse voxel octree scenes using per-pixel ray casting"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile voxel scene definitions into a binary compressed format",
			Description: `
Parse a voxel scene definition from a json file, build a sparse voxel octree
and package the octree buffers together with the camera and background
settings.

The compiled scene data is then written to a zip archive which can be supplied
as an argument to the render command.`,
			ArgsUsage: "scene_file1.json scene_file2.json ...",
			Action:    cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "print scene information",
			ArgsUsage: "scene_file",
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:  "render",
			Usage: "render scene",
			Subcommands: []cli.Command{
				{
					Name:        "frame",
					Usage:       "render single frame",
					Description: `Render a single frame and save it as a png image.`,
					ArgsUsage:   "scene_file",
					Flags: append(renderFlags(),
						cli.StringFlag{
							Name:  "out, o",
							Value: "frame.png",
							Usage: "image filename for the rendered frame",
						},
					),
					Action: cmd.RenderFrame,
				},
				{
					Name:        "bench",
					Usage:       "render a sequence of frames and report statistics",
					Description: `Render frames repeatedly, optionally orbiting the camera around the scene.`,
					ArgsUsage:   "scene_file",
					Flags: append(renderFlags(),
						cli.IntFlag{
							Name:  "frames",
							Value: 10,
							Usage: "number of frames to render",
						},
						cli.Float64Flag{
							Name:  "orbit",
							Usage: "rotate the camera around the scene center by this many degrees per frame",
						},
						cli.StringFlag{
							Name:  "metrics-addr",
							Usage: "serve prometheus metrics at this address (e.g. :9090)",
						},
					),
					Action: cmd.RenderBench,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

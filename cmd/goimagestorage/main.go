package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/autowp/goimagestorage"
	"github.com/autowp/goimagestorage/config"
	"github.com/autowp/goimagestorage/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const (
	configDirFlag   = "config-dir"
	metricsFileFlag = "metrics-file"
	imageIDFlag     = "image-id"
	formatFlag      = "format"
	dirFlag         = "dir"
	cropFlag        = "crop"
)

type applicationAction func(ctx context.Context, cmd *cli.Command, app *goimagestorage.Application) error

func withApplication(action applicationAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := config.LoadConfig(cmd.String(configDirFlag))
		if err != nil {
			return err
		}

		if err = config.ValidateConfig(cfg); err != nil {
			return err
		}

		config.ApplyLogLevel(cfg)

		app := goimagestorage.NewApplication(cfg)
		defer util.Close(app)

		err = action(ctx, cmd, app)

		if metricsFile := cmd.String(metricsFileFlag); metricsFile != "" {
			if writeErr := prometheus.WriteToTextfile(metricsFile, app.Registry()); writeErr != nil {
				logrus.Error(writeErr.Error())
			}
		}

		return err
	}
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(value)
}

func printLines(lines []string) {
	for _, line := range lines {
		fmt.Println(line) //nolint: forbidigo
	}
}

func imageIDFlagDef() cli.Flag {
	return &cli.Int64Flag{Name: imageIDFlag, Usage: "Image ID", Required: true}
}

func dirFlagDef() cli.Flag {
	return &cli.StringFlag{Name: dirFlag, Usage: "Storage dir name", Required: true}
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "migrate",
			Usage: "Apply database migrations",
			Action: withApplication(func(_ context.Context, _ *cli.Command, app *goimagestorage.Application) error {
				return app.Migrate()
			}),
		},
		{
			Name:  "list-dirs",
			Usage: "List registered storage dirs",
			Action: withApplication(func(_ context.Context, _ *cli.Command, app *goimagestorage.Application) error {
				dirs, err := app.ListDirs()
				if err != nil {
					return err
				}

				printLines(dirs)

				return nil
			}),
		},
		{
			Name:  "flush-format",
			Usage: "Remove all derivatives of a format",
			Flags: []cli.Flag{&cli.StringFlag{Name: formatFlag, Usage: "Format name", Required: true}},
			Action: withApplication(func(ctx context.Context, cmd *cli.Command, app *goimagestorage.Application) error {
				return app.FlushFormat(ctx, cmd.String(formatFlag))
			}),
		},
		{
			Name:  "flush-image",
			Usage: "Remove all derivatives of an image",
			Flags: []cli.Flag{imageIDFlagDef()},
			Action: withApplication(func(ctx context.Context, cmd *cli.Command, app *goimagestorage.Application) error {
				return app.FlushImage(ctx, cmd.Int64(imageIDFlag))
			}),
		},
		{
			Name:  "list-broken-files",
			Usage: "List files without image records",
			Flags: []cli.Flag{dirFlagDef()},
			Action: withApplication(func(ctx context.Context, cmd *cli.Command, app *goimagestorage.Application) error {
				files, err := app.ListBrokenFiles(ctx, cmd.String(dirFlag))
				if err != nil {
					return err
				}

				printLines(files)

				return nil
			}),
		},
		{
			Name:  "fix-broken-files",
			Usage: "Register files without image records",
			Flags: []cli.Flag{dirFlagDef()},
			Action: withApplication(func(ctx context.Context, cmd *cli.Command, app *goimagestorage.Application) error {
				fixed, err := app.FixBrokenFiles(ctx, cmd.String(dirFlag))
				if err != nil {
					return err
				}

				logrus.Infof("%d files registered", fixed)

				return nil
			}),
		},
		{
			Name:  "delete-broken-files",
			Usage: "Delete files without image records",
			Flags: []cli.Flag{dirFlagDef()},
			Action: withApplication(func(ctx context.Context, cmd *cli.Command, app *goimagestorage.Application) error {
				deleted, err := app.DeleteBrokenFiles(ctx, cmd.String(dirFlag))
				if err != nil {
					return err
				}

				logrus.Infof("%d files deleted", deleted)

				return nil
			}),
		},
		{
			Name:  "clear-empty-dirs",
			Usage: "Remove empty subdirectories",
			Flags: []cli.Flag{dirFlagDef()},
			Action: withApplication(func(ctx context.Context, cmd *cli.Command, app *goimagestorage.Application) error {
				removed, err := app.ClearEmptyDirs(ctx, cmd.String(dirFlag))
				if err != nil {
					return err
				}

				logrus.Infof("%d dirs removed", removed)

				return nil
			}),
		},
		{
			Name:  "get-image",
			Usage: "Print image info",
			Flags: []cli.Flag{imageIDFlagDef()},
			Action: withApplication(func(ctx context.Context, cmd *cli.Command, app *goimagestorage.Application) error {
				img, err := app.ImageStorageGetImage(ctx, cmd.Int64(imageIDFlag))
				if err != nil {
					return err
				}

				return printJSON(img)
			}),
		},
		{
			Name:  "get-formatted-image",
			Usage: "Print formatted image info, generating it when missing",
			Flags: []cli.Flag{
				imageIDFlagDef(),
				&cli.StringFlag{Name: formatFlag, Usage: "Format name", Required: true},
				&cli.StringFlag{Name: cropFlag, Usage: "Crop as left,top,width,height"},
			},
			Action: withApplication(func(ctx context.Context, cmd *cli.Command, app *goimagestorage.Application) error {
				crop, err := goimagestorage.ParseCrop(cmd.String(cropFlag))
				if err != nil {
					return err
				}

				img, err := app.ImageStorageGetFormattedImage(ctx, cmd.Int64(imageIDFlag), cmd.String(formatFlag), crop)
				if err != nil {
					return err
				}

				if img == nil {
					logrus.Info("formatted image is being generated")

					return nil
				}

				return printJSON(img)
			}),
		},
		{
			Name:  "flop",
			Usage: "Mirror image horizontally",
			Flags: []cli.Flag{imageIDFlagDef()},
			Action: withApplication(func(ctx context.Context, cmd *cli.Command, app *goimagestorage.Application) error {
				return app.Flop(ctx, cmd.Int64(imageIDFlag))
			}),
		},
		{
			Name:  "normalize",
			Usage: "Normalize image contrast",
			Flags: []cli.Flag{imageIDFlagDef()},
			Action: withApplication(func(ctx context.Context, cmd *cli.Command, app *goimagestorage.Application) error {
				return app.Normalize(ctx, cmd.Int64(imageIDFlag))
			}),
		},
	}
}

func main() { os.Exit(mainReturnWithCode()) }

func mainReturnWithCode() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "goimagestorage",
		Usage: "Image storage maintenance",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: configDirFlag, Usage: "Dir with defaults.yaml and config.yaml", Value: "."},
			&cli.StringFlag{Name: metricsFileFlag, Usage: "Write metrics in text format to this file"},
		},
		Commands: commands(),
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		logrus.Error(err.Error())

		return 1
	}

	return 0
}

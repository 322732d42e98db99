package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-audio/audio"
	"gopkg.in/yaml.v3"

	"pipelined.dev/augment"
	"pipelined.dev/augment/config"
	"pipelined.dev/augment/log"
	"pipelined.dev/augment/metric"
	"pipelined.dev/augment/source"
	"pipelined.dev/augment/transform"
)

const defaultSampleRate = 44100

// loadConfig reads env files, config file and environment overrides.
func loadConfig(path, envFile string) (config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return config.Config{}, err
	}
	c := config.Default()
	if path != "" {
		var err error
		if c, err = config.LoadFile(path); err != nil {
			return config.Config{}, err
		}
	}
	return config.FromEnv(c)
}

type runCommand struct {
	config   string
	envFile  string
	frames   int
	length   int
	channels int
	dump     bool
}

func (cmd *runCommand) Name() string {
	return "run"
}

func (cmd *runCommand) Help() string {
	return "Augment synthetic audio frames and report metrics"
}

func (cmd *runCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.config, "config", "", "path to yaml config")
	fs.StringVar(&cmd.envFile, "env", ".env", "path to env file")
	fs.IntVar(&cmd.frames, "frames", 64, "number of frames to generate")
	fs.IntVar(&cmd.length, "length", 512, "number of samples in every frame")
	fs.IntVar(&cmd.channels, "channels", 2, "number of channels")
	fs.BoolVar(&cmd.dump, "dump", false, "dump every batch")
}

func (cmd *runCommand) Run(out io.Writer) error {
	if cmd.frames <= 0 || cmd.length <= 0 || cmd.channels <= 0 {
		return fmt.Errorf("frames, length and channels must be positive")
	}
	c, err := loadConfig(cmd.config, cmd.envFile)
	if err != nil {
		return err
	}
	log.SetDebug(c.Debug)
	logger := log.GetLogger()
	logger.SetOutput(out)

	src, err := source.Frames(synthetic(cmd.frames*cmd.length, cmd.channels), cmd.length)
	if err != nil {
		return err
	}
	augments := []augment.Augment{
		transform.Scale(0.5),
		transform.Offset(0.1),
		transform.Clip(-1, 1),
	}
	if cmd.channels == 2 {
		augments = append(augments, transform.Swap())
	}
	name := c.Name
	if name == "" {
		name = "augmentbench"
	}
	options := append(c.Options(),
		augment.WithName(name),
		augment.WithAugments(augments...),
		augment.WithLogger(log.WithStream(logger, name)),
		augment.WithMetric(),
	)
	s, err := augment.New(src, c.BatchSize, options...)
	if err != nil {
		return err
	}

	start := time.Now()
	var batches, values int
	for b, err := range s.Batches(context.Background()) {
		if err != nil {
			return err
		}
		batches++
		values += len(b)
		if cmd.dump {
			spew.Fdump(out, b)
		}
	}
	fmt.Fprintf(out, "%v: %d batches, %d values in %v\n", s, batches, values, time.Since(start))
	for counter, value := range metric.Get(name) {
		fmt.Fprintf(out, "\t%s: %s\n", counter, value)
	}
	return nil
}

// synthetic returns interleaved buffer with a sine wave per channel.
func synthetic(numFrames, numChannels int) *audio.FloatBuffer {
	data := make([]float64, numFrames*numChannels)
	for i := 0; i < numFrames; i++ {
		for c := 0; c < numChannels; c++ {
			freq := 440 * float64(c+1)
			data[i*numChannels+c] = math.Sin(2 * math.Pi * freq * float64(i) / defaultSampleRate)
		}
	}
	return &audio.FloatBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  defaultSampleRate,
		},
		Data: data,
	}
}

type showCommand struct {
	config  string
	envFile string
}

func (cmd *showCommand) Name() string {
	return "show"
}

func (cmd *showCommand) Help() string {
	return "Print effective configuration"
}

func (cmd *showCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.config, "config", "", "path to yaml config")
	fs.StringVar(&cmd.envFile, "env", ".env", "path to env file")
}

func (cmd *showCommand) Run(out io.Writer) error {
	c, err := loadConfig(cmd.config, cmd.envFile)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	defer enc.Close()
	return enc.Encode(c)
}

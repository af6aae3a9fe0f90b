package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gridseq/gridseq"
	"github.com/gridseq/gridseq/cmd"
	"github.com/gridseq/gridseq/oto"
	"github.com/gridseq/gridseq/player"
	"github.com/gridseq/gridseq/sample"
	"github.com/gridseq/gridseq/version"
)

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the same directory where the original song file is.")
	play := flag.Bool("p", false, "Play the input songs (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Output the rendered song as .raw file. By default, saves stereo float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Output the rendered song as .wav file. By default, saves stereo float32 buffer to disk.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	jam := flag.Bool("jam", false, "Play the song live, looping until interrupted, with MIDI input triggering jam notes.")
	midiInput := flag.String("midi-input", "", "Connect MIDI input to matching device name prefix (with -jam).")
	jamInstrument := flag.String("jam-instrument", "", "Instrument jam notes play, as kind:name (with -jam). Defaults to the first instrument of the kit.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if *jam {
		if err := jamSong(flag.Arg(0), *midiInput, *jamInstrument); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}
	if !*rawOut && !*wavOut {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play the file
	}
	var audioContext gridseq.AudioContext
	var playWaiter gridseq.CloserWaiter
	if *play {
		var err error
		audioContext, err = oto.NewContext()
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire oto AudioContext: %v\n", err)
			os.Exit(1)
		}
	}
	process := func(filename string) error {
		output := func(extension string, contents []byte) error {
			if *stdout {
				fmt.Print(contents)
				return nil
			}
			_, name := filepath.Split(filename)
			dir := *directory
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
				}
			}
			name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
			f := filepath.Join(dir, name)
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			return nil
		}
		song, err := readSong(filename)
		if err != nil {
			return err
		}
		buffer, err := player.RenderSong(song)
		if err != nil {
			return fmt.Errorf("RenderSong failed: %v", err)
		}
		if *play {
			playWaiter = audioContext.Play(buffer.Source())
		}
		if *rawOut {
			raw, err := buffer.Raw(*pcm)
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %v", err)
			}
			if err := output(".raw", raw); err != nil {
				return fmt.Errorf("error outputting .raw file: %v", err)
			}
		}
		if *wavOut {
			wav, err := buffer.Wav(*pcm)
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %v", err)
			}
			if err := output(".wav", wav); err != nil {
				return fmt.Errorf("error outputting .wav file: %v", err)
			}
		}
		if *play {
			playWaiter.Wait()
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			jsonfiles, err := filepath.Glob(filepath.Join(param, "*.json"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for json files: %v\n", param, err)
				retval = 1
				continue
			}
			ymlfiles, err := filepath.Glob(filepath.Join(param, "*.yml"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for yml files: %v\n", param, err)
				retval = 1
				continue
			}
			files := append(ymlfiles, jsonfiles...)
			for _, file := range files {
				if err := process(file); err != nil {
					fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
					retval = 1
				}
			}
		} else {
			if err := process(param); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
				retval = 1
			}
		}
	}
	os.Exit(retval)
}

func readSong(filename string) (*gridseq.Song, error) {
	inputBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read file %v: %v", filename, err)
	}
	var song gridseq.Song
	if errJSON := json.Unmarshal(inputBytes, &song); errJSON != nil {
		if errYaml := yaml.Unmarshal(inputBytes, &song); errYaml != nil {
			return nil, fmt.Errorf("the song could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	if err := song.Validate(); err != nil {
		return nil, fmt.Errorf("invalid song %v: %v", filename, err)
	}
	return &song, nil
}

// jamSong plays the song live and loops forever: the pattern keeps cycling
// until interrupted, MIDI input plays jam notes on top.
func jamSong(filename, midiPrefix, instrument string) error {
	song, err := readSong(filename)
	if err != nil {
		return err
	}
	audioContext, err := oto.NewContext()
	if err != nil {
		return fmt.Errorf("could not acquire oto AudioContext: %v", err)
	}
	broker := player.NewBroker()
	cache := sample.NewCache(64<<20, 96<<20)
	p := player.NewPlayer(broker, cache)

	midiContext := cmd.NewMidiContext(broker)
	defer midiContext.Close()
	ref := gridseq.InstrumentRef{}
	if instrument != "" {
		if ref, err = gridseq.ParseInstrumentRef(instrument); err != nil {
			return err
		}
	} else if len(song.Kit.Instruments) > 0 {
		instr := &song.Kit.Instruments[0]
		ref = gridseq.InstrumentRef{Kind: gridseq.KindSynth, Name: instr.Name}
		if instr.SamplePath != "" {
			ref.Kind = gridseq.KindSample
		}
	}
	midiContext.SetInstrument(ref)
	if midiPrefix != "" {
		if err := midiContext.OpenByPrefix(midiPrefix); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
	}

	player.TrySend(broker.ToPlayer, any(*song))
	player.TrySend(broker.ToPlayer, any(player.PlayMsg{}))
	playWaiter := audioContext.Play(p.Source())
	defer playWaiter.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	for {
		select {
		case msg := <-broker.ToModel:
			if alert, ok := msg.Data.(player.Alert); ok {
				fmt.Fprintf(os.Stderr, "%s: %s\n", alert.Name, alert.Message)
			}
			if buf, ok := msg.Data.(*gridseq.AudioBuffer); ok {
				broker.PutAudioBuffer(buf)
			}
		case <-interrupt:
			return nil
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Gridseq command line utility for playing .json/.yml song files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jonasknobloch/mbpe"

	"go.jknobloc.com/x/perplexity"
	"go.jknobloc.com/x/perplexity/corpus"
	"go.jknobloc.com/x/perplexity/gpt2"
	"go.jknobloc.com/x/perplexity/tokenizer"
)

func main() {
	corpusName := flag.String("corpus", "data/shakespeare.txt", "corpus text file")
	modelName := flag.String("model", "models/base/model.onnx", "GPT-2 ONNX export")
	vocab := flag.String("vocab", "models/base/vocab.json", "BPE vocabulary")
	merges := flag.String("merges", "models/base/merges.txt", "BPE merge list")
	encoding := flag.String("encoding", "", "tiktoken encoding name, overrides vocab/merges")
	maxLength := flag.Int("max-length", 1024, "context window size")
	stride := flag.Int("stride", 512, "window stride")
	devices := flag.String("devices", "", "comma separated CUDA device ids, empty for CPU")

	flag.Parse()

	var tok perplexity.Tokenizer

	if *encoding != "" {
		if t, err := tokenizer.NewTiktoken(*encoding); err != nil {
			log.Fatal(err)
		} else {
			tok = t
		}
	} else {
		if t, err := tokenizer.NewMBPE(*vocab, *merges); err != nil {
			log.Fatal(err)
		} else {
			tok = t
		}
	}

	tokens, err := corpus.Tokens(*corpusName, tok)

	if err != nil {
		log.Fatal(err)
	}

	windows, err := perplexity.Plan(len(tokens), *maxLength, *stride)

	if err != nil {
		log.Fatal(err)
	}

	e := perplexity.NewEvaluator(*maxLength, *stride)

	for _, deviceID := range deviceIDs(*devices) {
		m := gpt2.NewModel(*modelName, deviceID)

		if err := m.Init(); err != nil {
			log.Fatal(err)
		}

		defer m.Close()

		e.AddScorer(m)
	}

	defer gpt2.Destroy()

	pb := mbpe.NewProgressBar("Perplexity", 20, len(windows), time.Now())

	e.SetProgress(func(done int) {
		pb.Update(done)
		pb.Print()
	})

	ppl, err := e.Perplexity(context.Background(), tokens)

	if err != nil {
		log.Fatal(err)
	}

	pb.Finish()

	fmt.Printf("\nPerplexity: %.2f\n", ppl)
}

func deviceIDs(devices string) []string {
	if devices == "" {
		return []string{""}
	}

	return strings.Split(devices, ",")
}

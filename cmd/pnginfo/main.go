// pnginfo печатает параметры генерации, записанные в PNG.
//
//	pnginfo [-raw] image.png [image2.png ...]
package main

import (
	"flag"
	"fmt"
	"os"

	"sdgallery/internal/domain/models"
	"sdgallery/internal/lib/pngtext"

	"github.com/fatih/color"
)

var (
	header = color.New(color.FgCyan, color.Bold)
	label  = color.New(color.FgYellow)
	warn   = color.New(color.FgRed)
)

func main() {
	raw := flag.Bool("raw", false, "print the parameters chunk as is")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: pnginfo [-raw] image.png ...")
		os.Exit(2)
	}

	failed := false
	for _, path := range flag.Args() {
		if err := printFile(path, *raw); err != nil {
			warn.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

func printFile(path string, raw bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	header.Println(path)

	if raw {
		text, ok := pngtext.ExtractParameterText(data)
		if !ok {
			warn.Println("  no parameters chunk")
			return nil
		}
		fmt.Println(text)
		return nil
	}

	info, ok := pngtext.Parse(data)
	if !ok {
		warn.Println("  no parameters chunk, defaults:")
	}
	printInfo(info)

	return nil
}

func printInfo(info models.PngInfo) {
	field := func(name string, value any) {
		label.Printf("  %-18s", name)
		fmt.Println(value)
	}

	field("Prompt:", info.Prompt)
	field("Negative prompt:", info.NegativePrompt)
	field("Size:", fmt.Sprintf("%dx%d", info.Width, info.Height))
	field("Steps:", info.Steps)
	field("CFG scale:", info.CFG)
	field("Seed:", info.Seed)
	field("Sampler:", info.Sampler)
	field("Model hash:", info.ModelHash)
	field("Model:", info.ModelName)

	if info.RestoreFaces {
		field("Face restoration:", info.FaceRestoration)
	}
	if info.DenoisingStrength != 0 {
		field("Denoising:", info.DenoisingStrength)
	}
	if info.HiresUpscale != 0 {
		field("Hires upscale:", info.HiresUpscale)
		field("Hires steps:", info.HiresSteps)
	}
}

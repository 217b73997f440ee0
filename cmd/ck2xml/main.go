package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"ck2db/internal/config"
	"ck2db/internal/diagnostic"
	"ck2db/internal/source"
	"ck2db/internal/xmlexport"
)

func main() {
	_ = godotenv.Load()

	input := flag.String("input", "", "save file or s3://bucket/key")
	output := flag.String("output", "", "XML file (stdout when empty)")
	root := flag.String("root", "CK2_Save_game", "root element name")
	indent := flag.String("indent", "", "indentation per level, e.g. two spaces")
	flag.Parse()
	if *input == "" && flag.NArg() > 0 {
		*input = flag.Arg(0)
	}
	if *input == "" {
		log.Fatal("--input is required")
	}

	opener := &source.Opener{S3: config.S3FromEnv()}
	rc, err := opener.OpenDecoded(context.Background(), *input)
	if err != nil {
		log.Fatal(err)
	}
	defer rc.Close()

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)

	tally := &diagnostic.Tally{Next: diagnostic.LogReporter{}}
	stats, err := xmlexport.Convert(rc, bw, xmlexport.Options{Root: *root, Indent: *indent, Reporter: tally})
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		log.Fatalf("convert %s: %v", *input, err)
	}
	log.Printf("%s: %d lines, %d elements, %s", *input, stats.Lines, stats.Elements, tally.Summary())
}

/*
bio-padindex loads a pad/campaign catalog and a precomputed filter file,
builds the in-memory targeting index, and prints a diagnostic report. It
is the batch entry point for the library in github.com/grailbio/padindex.
*/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/grailbio/padindex/catalog"
	"github.com/grailbio/padindex/filters"
	"github.com/grailbio/padindex/padindex"
)

var (
	indexPath = flag.String("index", "", "Path to the precomputed filter file (index.txt)")
	checksum  = flag.Bool("checksum", false, "Print a seahash checksum of the catalog input files and exit, instead of building the index")
)

func bioPadIndexUsage() {
	fmt.Printf("Usage: %s [OPTIONS] catalog-dir\n", os.Args[0])
	fmt.Printf("catalog-dir must contain pad.txt, pad_relation.txt, user.txt, campaign.txt,\n")
	fmt.Printf("targeting_user.txt, targeting_package.txt, and targeting_campaign.txt.\n")
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioPadIndexUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		log.Fatalf("Missing positional argument (catalog-dir required); please check flag syntax")
	}
	dir := flag.Arg(0)

	if *checksum {
		sum, err := checksumCatalog(dir, *indexPath)
		if err != nil {
			log.Panicf("%v", err)
		}
		fmt.Println(sum)
		return
	}

	if *indexPath == "" {
		log.Fatalf("-index is required when not run with -checksum")
	}

	cat, stats, err := catalog.Load(dir)
	if err != nil {
		log.Panicf("%v", err)
	}
	log.Printf("padindex: catalog loaded: %+v", stats)

	bank, err := filters.Load(*indexPath, cat)
	if err != nil {
		log.Panicf("%v", err)
	}

	idx, diag, err := padindex.Build(cat, bank)
	if err != nil {
		log.Panicf("%v", err)
	}
	if diag.MixedPositiveSourceCampaigns > 0 || diag.UserTargetedCampaigns > 0 {
		log.Printf("padindex: diagnostics: %+v", diag)
	}

	report := padindex.BuildReport(idx)
	fmt.Println(report.String())
}

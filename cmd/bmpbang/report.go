package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/bitbang/bmp180"
	"github.com/mklimuk/bitbang/cmd/bmpbang/console"
	"github.com/mklimuk/bitbang/config"
)

func report(w io.Writer, format string, m bmp180.Measurement) error {
	if format == config.OutputYAML {
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(m)
	}
	return reportText(w, m)
}

func reportText(w io.Writer, m bmp180.Measurement) error {
	tw := tabwriter.NewWriter(w, 8, 0, 2, ' ', 0)
	chip := console.Green(fmt.Sprintf("%#02x", m.ChipID))
	if m.CheckChip() != nil {
		chip = console.Red(fmt.Sprintf("%#02x", m.ChipID))
	}
	_, _ = fmt.Fprintf(tw, "chip id\t%s\n", chip)
	_, _ = fmt.Fprintf(tw, "UT\t%d\n", m.UT)
	_, _ = fmt.Fprintf(tw, "UP\t%d\n", m.UP)
	if m.Fault {
		_, _ = fmt.Fprintf(tw, "%s temperature\t%s\n", console.PictoThermometer, console.Red("FAULT"))
	} else {
		_, _ = fmt.Fprintf(tw, "%s temperature\t%s (%s)\n", console.PictoThermometer, formatTemperature(m), console.Bold(fmt.Sprintf("%#02x", m.ResultByte())))
	}
	if m.Nacks > 0 {
		_, _ = fmt.Fprintf(tw, "nacks\t%s\n", console.Yellow(m.Nacks))
	}
	return tw.Flush()
}

func reportCalibration(w io.Writer, c bmp180.Calibration) error {
	tw := tabwriter.NewWriter(w, 8, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "COEFFICIENT\tRAW\tVALUE\n")
	words := c.Words()
	for i, word := range words {
		// AC4..AC6 are the only unsigned coefficients
		value := int(int16(word))
		if i >= 3 && i <= 5 {
			value = int(word)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%#04x\t%d\n", bmp180.CoefficientName(i), word, value)
	}
	return tw.Flush()
}

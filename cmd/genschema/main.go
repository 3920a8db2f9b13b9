package main

import (
	"fmt"
	"os"

	"github.com/pbaille/calsync/internal/config"
	"github.com/pbaille/calsync/internal/schema"
	"github.com/sirupsen/logrus"
)

// genschema writes the calendar extraction schema to agent.json.
func main() {
	out := config.DefaultSchemaFile
	if err := schema.WriteFile(out); err != nil {
		logrus.WithError(err).WithField("file", out).Error("could not write schema")
		os.Exit(1)
	}
	fmt.Printf("%s gerado com sucesso!\n", out)
}

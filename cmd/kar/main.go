// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"io/ioutil"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/raft/utility/kar"
)

func init() {
	u, err := user.Current()
	if err != nil {
		currentUserName = "unknown"
		return
	}
	currentUserName = u.Name
}

var (
	currentUserName string
	author          = flag.String("author", "", "Set the author of the package when compressing")
	version         = flag.Int64("version", 1, "Archive version number to create it with")
	extract         = flag.String("e", "", "Extract the file given")
	compress        = flag.String("c", "", "Compress the given file/folder")
	dstFile         = flag.String("f", "out.kar", "Destination file, or directory when extracting")
	silent          = flag.Bool("s", false, "Silent")
)

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	if *extract != "" && *compress != "" {
		log.Fatal("only one operation at a time")
	}

	switch {
	case *extract != "":
		if err := extractFiles(*extract, *dstFile); err != nil {
			log.WithError(err).Fatal("extract failed")
		}
	case *compress != "":
		if err := compressFiles(*compress, *dstFile); err != nil {
			log.WithError(err).Fatal("compress failed")
		}
	default:
		flag.PrintDefaults()
	}
}

func compressFiles(src, dstPath string) error {
	if _, err := os.Stat(dstPath); err == nil {
		return errors.New("destination file exists, will not overwrite")
	}

	var filesToCompress []string
	if err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		filesToCompress = append(filesToCompress, path)
		return nil
	}); err != nil {
		return errors.Wrapf(err, "walk %s", src)
	}

	name := *author
	if name == "" {
		name = currentUserName
	}
	karBuilder, err := kar.NewBuilder(kar.Header{
		Author:      name,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})
	if err != nil {
		return err
	}
	defer karBuilder.Close()

	for _, ftc := range filesToCompress {
		// entries are named relative to the source, so a shader directory
		// archives as the names the renderer asks for
		rel, err := filepath.Rel(src, ftc)
		if err != nil || rel == "." {
			rel = filepath.Base(ftc)
		}
		if err := addFile(karBuilder, filepath.ToSlash(rel), ftc); err != nil {
			return err
		}
		log.WithField("file", rel).Debug("added")
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	written, err := karBuilder.WriteTo(dst)
	if err != nil {
		dst.Close()
		return errors.Wrap(err, "write archive")
	}
	log.WithFields(log.Fields{
		"files":   karBuilder.Len(),
		"bytes":   written,
		"archive": dstPath,
	}).Info("archive written")
	return dst.Close()
}

func addFile(b *kar.Builder, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return errors.Wrapf(b.Add(name, f), "add %s", name)
}

func extractFiles(archivePath, dstDir string) error {
	if dstDir == "out.kar" {
		dstDir = "."
	}
	ar, err := kar.OpenFile(archivePath)
	if err != nil {
		return errors.Wrapf(err, "open %s", archivePath)
	}
	defer ar.Close()

	for _, name := range ar.Names() {
		data, err := ar.ReadAll(name)
		if err != nil {
			return err
		}
		path := filepath.Join(dstDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := ioutil.WriteFile(path, data, 0644); err != nil {
			return err
		}
		log.WithField("file", path).Debug("extracted")
	}
	log.WithFields(log.Fields{
		"files":   len(ar.Names()),
		"archive": archivePath,
	}).Info("archive extracted")
	return nil
}

/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package generator

import (
	"fmt"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	ZooCfgPath     = "zookeeper/conf/zoo.cfg"
	MyIDPath       = "zookeeper/conf/myid"
	EnvPath        = "zookeeper/conf/env.sh"
	Log4jPath      = "zookeeper/conf/log4j.properties"
	MonitoringPath = "jmxtrans/zookeeper.json"
)

// File is one artifact of a bundle, with a slash separated path relative to
// the bundle directory.
type File struct {
	Path string
	Data []byte
	Mode os.FileMode
}

// Bundle holds every artifact deployed to the host of one member.
type Bundle struct {
	MemberID int
	HostName string
	Files    []File
}

// Dir is the directory name of the bundle below the output directory.
func (b *Bundle) Dir() string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(b.HostName)
	return fmt.Sprintf("%d-%s", b.MemberID, name)
}

func (b *Bundle) File(path string) (File, bool) {
	for _, file := range b.Files {
		if file.Path == path {
			return file, true
		}
	}
	return File{}, false
}

func fingerprintBundles(bundles []*Bundle) string {
	digest := xxhash.New()
	for _, bundle := range bundles {
		_, _ = digest.WriteString(bundle.Dir())
		_, _ = digest.WriteString("\x00")
		for _, file := range bundle.Files {
			_, _ = digest.WriteString(file.Path)
			_, _ = digest.WriteString("\x00")
			_, _ = digest.Write(file.Data)
			_, _ = digest.WriteString("\x00")
		}
	}
	return fmt.Sprintf("%016x", digest.Sum64())
}

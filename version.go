//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package registry

import "fmt"

// Versions follow MAJOR.MINOR.PATCH, with -alpha, -beta or -rc suffixes for
// pre-releases.
const (
	MajorVersion  = 0
	MinorVersion  = 3
	PatchVersion  = 0
	VersionSuffix = "-dev"
)

// Version returns the version of the registry.
func Version() string {
	return fmt.Sprintf("v%d.%d.%d%s", MajorVersion, MinorVersion, PatchVersion, VersionSuffix)
}

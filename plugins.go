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

// Built-in plugins, configured under plugins.<type>.<name>.
import (
	_ "trpc.group/trpc-go/trpc-registry/audit"
	_ "trpc.group/trpc-go/trpc-registry/source/etcd"
	_ "trpc.group/trpc-go/trpc-registry/source/file"
	_ "trpc.group/trpc-go/trpc-registry/source/pgsource"
)

// SPDX-License-Identifier: MPL-2.0

// Package plugintest provides an in-memory plugin world for tests: a
// module.Loader, an abi.Caller and a descriptor.Memory that together behave
// like a directory of loadable plugin modules, without any shared library.
//
// This package is separate from testutil so that testutil stays free of
// domain imports.
//
// # Usage
//
//	w := plugintest.NewWorld()
//	w.Add("/plugins/libsignal.so", plugintest.NewPlugin(
//	    plugintest.WithTable("do_get_filter_descriptors", abi.KindFilter, plugintest.Named(11, "filter")...),
//	    plugintest.WithFactory("do_create_filter", plugintest.Succeed()),
//	))
//	runner := probe.NewRunner(w, w, w.Memory(), nil)
package plugintest

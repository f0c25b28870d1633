// Package cacheprovider wires named cache backends into an application.
//
// A Provider is built from Options, a map of cache name to Config. Each
// Config selects a backend either through a Factory or through a driver
// string: a symbolic name such as "array" or "file_system", mapped to a type
// name by TypeName, or an explicit type prefixed with "@" such as
// "@FilesystemCache". The remaining Config.Options are bound by name to the
// backend's parameters.
//
// Caches are constructed on first access and memoized by the Registry, so
// configuration errors surface at that point rather than in New:
//
//	p := cacheprovider.New(nil) // {"default": {Driver: "array"}}
//	defer p.Close()
//
//	c, err := p.Cache(ctx)
//	if err != nil {
//		return err
//	}
//	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
//
// Backends live under driver/ and implement cachecore.Store. A backend
// implementing cachecore.Namespacer receives the "namespace" option after
// construction; other backends ignore it.
package cacheprovider

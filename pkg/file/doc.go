// Package file provides object storage for tenant media with a flat
// key-based API and tenant-prefixed namespacing.
//
// Every object belonging to a tenant lives under the tenant-{id}/ prefix
// produced by ObjectKey. Tenant deletion purges the whole prefix in one
// call, so nothing outside this package may invent its own key scheme.
//
// Two implementations are provided: S3Storage for Amazon S3 and
// S3-compatible services (MinIO, R2), and LocalStorage for development.
//
//	store, err := file.NewS3Storage(ctx, file.S3Config{
//		Bucket: "gallerykit-media",
//		Region: "us-east-1",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	key := file.ObjectKey(tenantID, "originals", header.Filename)
//	url, err := store.Put(ctx, key, src, "image/jpeg")
package file

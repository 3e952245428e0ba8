/*
Package wix is a lightweight wrapper around the wix tooolset.

Background and Theory Of Operations

wix's toolchain is based around compiling xml files into
installers. The SDK installer is split across two sources: a hand
maintained Product.wxs, and a generated Components.wxs that lists
every directory and file to install. This package holds
the pieces both sides need:

  1. A schema for the subset of wxs elements the generator emits
  2. Identifier normalization, so paths become legal wix Ids
  3. A Toolchain that runs `candle` and `light` to produce an msi

The basic steps of making a package:
  1. Generate Components.wxs from the staged tree (see pkg/wxsgen)
  2. Use `candle` to compile Product.wxs and Components.wxs into wixobj
  3. Use `light` to link the wixobj files into an msi

Sources reference staged files through $(var.SourceDir), which the
Toolchain binds to the repository root with -dSourceDir.

References

  1. http://wixtoolset.org/
  2. http://wixtoolset.org/documentation/manual/v3/xsd/wix/
*/
package wix

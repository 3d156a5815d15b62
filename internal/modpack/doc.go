// Package modpack loads an instance's mods directory into a mod.Set.
//
// Every jar named *.jar or *.jar.tempdisabled is opened and searched for
// Forge or NeoForge metadata (META-INF/mods.toml, META-INF/neoforge.mods.toml),
// including inside nested jars. Jars the user disabled (*.jar.disabled) are not
// loaded. Metadata placeholders are resolved from META-INF/MANIFEST.MF.
//
// All mods found in one file share that file: the first becomes its owner and
// the rest are attached to the owner with a required requirement, so they are
// always toggled and clustered together.
package modpack

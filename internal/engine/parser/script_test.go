package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptExtractor_Vue(t *testing.T) {
	src := `<template>
  <div>{{ msg }}</div>
</template>

<script setup lang="ts">
import Child from './Child.vue';
const msg = 'hi';
</script>

<style scoped>
div { color: red; }
</style>
`
	scripts, err := NewScriptExtractor().Extract("App.vue", []byte(src))
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Contains(t, scripts[0], "import Child from './Child.vue';")
	assert.NotContains(t, scripts[0], "color: red")
}

func TestScriptExtractor_SvelteMultipleScripts(t *testing.T) {
	src := `<script context="module">
export const prerender = true;
</script>

<script>
import Nav from './Nav.svelte';
</script>

<Nav />
`
	scripts, err := NewScriptExtractor().Extract("Page.svelte", []byte(src))
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Contains(t, scripts[0], "prerender")
	assert.Contains(t, scripts[1], "./Nav.svelte")
}

func TestScriptExtractor_AstroFrontmatter(t *testing.T) {
	src := `---
import Layout from '../layouts/Layout.astro';
const title = 'Home';
---
<Layout title={title}>
  <h1>Home</h1>
</Layout>
<script>
import { track } from '../lib/analytics';
</script>
`
	scripts, err := NewScriptExtractor().Extract("index.astro", []byte(src))
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.True(t, strings.HasPrefix(scripts[0], "import Layout"))
	assert.NotContains(t, scripts[0], "---")
	assert.Contains(t, scripts[1], "../lib/analytics")

	res, err := New().Parse("index.astro", []byte(JoinScripts(scripts)))
	require.NoError(t, err)
	assert.Len(t, res.Imports, 2)
}

func TestScriptExtractor_NoScripts(t *testing.T) {
	scripts, err := NewScriptExtractor().Extract("Static.vue", []byte("<template><p>hi</p></template>"))
	require.NoError(t, err)
	assert.Empty(t, scripts)
}

func TestScriptExtractor_RejectsOtherFiles(t *testing.T) {
	_, err := NewScriptExtractor().Extract("index.ts", []byte("export {}"))
	assert.True(t, errors.Is(err, ErrParse))
}
